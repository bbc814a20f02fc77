package repository

import (
	"errors"
	"time"

	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobEmbeddingRepository struct {
	db *gorm.DB
}

func NewJobEmbeddingRepository(db *gorm.DB) *JobEmbeddingRepository {
	return &JobEmbeddingRepository{db}
}

// Upsert writes the embedding for (tenant, external job). The ON CONFLICT
// clause absorbs races between concurrent syncs; last write wins.
func (r *JobEmbeddingRepository) Upsert(emb *model.JobEmbedding) (created bool, err error) {
	var existing model.JobEmbedding
	err = r.db.
		Where("tenant_id = ? AND external_job_id = ?", emb.TenantID, emb.ExternalJobID).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		emb.UpdatedAt = time.Now()
		err = r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "external_job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "required_skills", "updated_at"}),
		}).Create(emb).Error
		return err == nil, err
	}
	if err != nil {
		return false, err
	}

	err = r.db.Model(&existing).Updates(map[string]any{
		"embedding":       emb.Embedding,
		"required_skills": emb.RequiredSkills,
		"updated_at":      time.Now(),
	}).Error
	return false, err
}

func (r *JobEmbeddingRepository) ListByTenant(tenantID uuid.UUID) ([]model.JobEmbedding, error) {
	var embeddings []model.JobEmbedding
	err := r.db.Where("tenant_id = ?", tenantID).Find(&embeddings).Error
	return embeddings, err
}

// DeleteStale prunes every embedding for the tenant whose external job id is
// not in keepIDs. Callers must never pass an empty keepIDs — an empty sync
// payload is a skip, not a wipe.
func (r *JobEmbeddingRepository) DeleteStale(tenantID uuid.UUID, keepIDs []string) (int64, error) {
	if len(keepIDs) == 0 {
		return 0, errors.New("refusing to prune with an empty keep set")
	}

	tx := r.db.
		Where("tenant_id = ? AND external_job_id NOT IN ?", tenantID, keepIDs).
		Delete(&model.JobEmbedding{})
	return tx.RowsAffected, tx.Error
}
