package repository

import (
	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobMatchRepository struct {
	db *gorm.DB
}

func NewJobMatchRepository(db *gorm.DB) *JobMatchRepository {
	return &JobMatchRepository{db}
}

func (r *JobMatchRepository) Upsert(match *model.JobMatch) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "resume_id"}, {Name: "external_job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"combined_score", "matched_skills"}),
	}).Create(match).Error
}

func (r *JobMatchRepository) ListByResume(tenantID, resumeID uuid.UUID, limit int) ([]model.JobMatch, error) {
	var matches []model.JobMatch
	err := r.db.
		Where("tenant_id = ? AND resume_id = ?", tenantID, resumeID).
		Order("combined_score DESC, created_at DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}
