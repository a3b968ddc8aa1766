//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/testutil"
)

func newTestPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func seedKnowledgeTx(t *testing.T) *domain.KnowledgeItem {
	t.Helper()
	return newKnowledgeItem()
}

func seedKnowledge(ctx context.Context, t *testing.T, repo *KnowledgeRepository, mutate func(k *domain.KnowledgeItem)) *domain.KnowledgeItem {
	t.Helper()
	k := newKnowledgeItem()
	if mutate != nil {
		mutate(k)
	}
	require.NoError(t, repo.Upsert(ctx, k))
	return k
}

func newKnowledgeItem() *domain.KnowledgeItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.NewString()
	k := &domain.KnowledgeItem{
		ID:        id,
		Title:     "Item " + id[:8],
		Content:   "General information for students.",
		Category:  domain.KnowledgeCategoryGeneral,
		Tags:      []string{"general-information"},
		Priority:  5,
		SourceURL: "https://www.rmit.edu.au/page/" + id,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return k
}
