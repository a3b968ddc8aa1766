package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEmbeddingJob(t *testing.T) {
	now := time.Now()
	job := NewEmbeddingJob("j1", "k1", now)

	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, "k1", job.KnowledgeID)
	assert.Equal(t, EmbeddingJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Nil(t, job.ProcessedAt)
	assert.NoError(t, ValidateEmbeddingJob(job))
}

func TestValidateEmbeddingJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     *EmbeddingJob
		wantErr bool
	}{
		{"nil", nil, true},
		{"missing id", &EmbeddingJob{KnowledgeID: "k", Status: EmbeddingJobStatusPending}, true},
		{"missing knowledge", &EmbeddingJob{ID: "j", Status: EmbeddingJobStatusPending}, true},
		{"bad status", &EmbeddingJob{ID: "j", KnowledgeID: "k", Status: "queued"}, true},
		{"negative retries", &EmbeddingJob{ID: "j", KnowledgeID: "k", Status: EmbeddingJobStatusFailed, Retries: -1}, true},
		{"valid", &EmbeddingJob{ID: "j", KnowledgeID: "k", Status: EmbeddingJobStatusCompleted, CreatedAt: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbeddingJob(tt.job)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
