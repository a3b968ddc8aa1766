//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/pagination"
)

func TestKnowledgeRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository(newTestPool(ctx, t))

	k := seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "Bachelor of Computer Science"
		k.Category = domain.KnowledgeCategoryCourseInfo
		k.EntityCodes = []string{"BP094"}
		k.StructuredData = map[string]any{"type": "course"}
	})

	got, err := repo.GetByID(ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bachelor of Computer Science", got.Title)
	assert.Equal(t, domain.KnowledgeCategoryCourseInfo, got.Category)
	assert.Equal(t, []string{"BP094"}, got.EntityCodes)
	assert.Equal(t, "course", got.StructuredData["type"])

	bySource, err := repo.GetBySourceURL(ctx, k.SourceURL)
	require.NoError(t, err)
	assert.Equal(t, k.ID, bySource.ID)
}

func TestKnowledgeRepository_UpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository(newTestPool(ctx, t))

	first := seedKnowledge(ctx, t, repo, nil)

	again := *first
	again.ID = uuid.NewString()
	again.Title = "Updated title"
	again.UpdatedAt = time.Now().UTC().Add(time.Minute).Truncate(time.Microsecond)
	require.NoError(t, repo.Upsert(ctx, &again))

	assert.Equal(t, first.ID, again.ID)
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated title", got.Title)
}

func TestKnowledgeRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository(newTestPool(ctx, t))

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)
}

func TestKnowledgeRepository_FindByCode(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository(newTestPool(ctx, t))

	exact := seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "Algorithms and Analysis"
		k.EntityCodes = []string{"COSC2123"}
		k.Priority = 3
	})
	partial := seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "COSC2123 assessment guide"
		k.Priority = 9
	})
	seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "Unrelated"
	})

	items, err := repo.FindByCode(ctx, "cosc2123", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, exact.ID, items[0].ID)
	assert.Equal(t, partial.ID, items[1].ID)
}

func TestKnowledgeRepository_SearchText(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository(newTestPool(ctx, t))

	high := seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "Special consideration"
		k.Content = "Apply for special consideration for an assessment."
		k.Priority = 8
	})
	low := seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "Assessment overview"
		k.Priority = 4
	})
	tagged := seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "Extensions"
		k.Tags = []string{"policy"}
		k.Priority = 2
	})
	seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
		k.Title = "Inactive assessment notes"
		k.IsActive = false
	})

	items, err := repo.SearchText(ctx, []string{"assessment", "policy", "100%_"}, 10)
	require.NoError(t, err)

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	assert.Equal(t, []string{high.ID, low.ID, tagged.ID}, ids)
}

func TestKnowledgeRepository_SemanticSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository(newTestPool(ctx, t))

	near := seedKnowledge(ctx, t, repo, nil)
	far := seedKnowledge(ctx, t, repo, nil)
	seedKnowledge(ctx, t, repo, nil) // no embedding

	vec := func(hot int) []float32 {
		v := make([]float32, 1536)
		v[hot] = 1
		return v
	}
	require.NoError(t, repo.UpdateEmbedding(ctx, near.ID, vec(0)))
	require.NoError(t, repo.UpdateEmbedding(ctx, far.ID, vec(1)))

	items, err := repo.SearchSemantic(ctx, vec(0), 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, near.ID, items[0].ID)

	err = repo.UpdateEmbedding(ctx, uuid.NewString(), vec(0))
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)
}

func TestKnowledgeRepository_ListByCategoryWithCursor(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepository(newTestPool(ctx, t))

	for i := 0; i < 5; i++ {
		seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) {
			k.Category = domain.KnowledgeCategoryPolicies
			k.Priority = 5 + i%2
			k.UpdatedAt = k.UpdatedAt.Add(time.Duration(i) * time.Second)
		})
	}
	seedKnowledge(ctx, t, repo, func(k *domain.KnowledgeItem) { k.Category = domain.KnowledgeCategoryFAQ })

	page1, err := repo.ListByCategoryWithCursor(ctx, domain.KnowledgeCategoryPolicies, nil, 3)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 3)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextCursor)

	cursor, err := pagination.DecodeCursor(page1.NextCursor)
	require.NoError(t, err)

	page2, err := repo.ListByCategoryWithCursor(ctx, domain.KnowledgeCategoryPolicies, cursor, 3)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
	assert.False(t, page2.HasMore)
	assert.Empty(t, page2.NextCursor)

	seen := map[string]bool{}
	for _, k := range append(page1.Items, page2.Items...) {
		assert.False(t, seen[k.ID])
		seen[k.ID] = true
		assert.Equal(t, domain.KnowledgeCategoryPolicies, k.Category)
	}
	assert.GreaterOrEqual(t, page1.Items[0].Priority, page1.Items[2].Priority)

	all, err := repo.ListByCategoryWithCursor(ctx, "", nil, 20)
	require.NoError(t, err)
	assert.Len(t, all.Items, 6)
}
