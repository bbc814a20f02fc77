package model

import (
	"time"

	"github.com/google/uuid"
)

// JobMatch is the persisted result of a ranking pass. Rows are upserted per
// (tenant, resume, external job) and only removed when their resume is deleted.
type JobMatch struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_job_matches_tenant_resume_job,priority:1" json:"tenant_id"`
	ResumeID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_job_matches_tenant_resume_job,priority:2" json:"resume_id"`
	ExternalJobID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_job_matches_tenant_resume_job,priority:3" json:"external_job_id"`
	CombinedScore float64   `gorm:"type:float;not null" json:"combined_score"`
	MatchedSkills []string  `gorm:"serializer:json;type:jsonb" json:"matched_skills"`
	CreatedAt     time.Time `json:"created_at"`

	Resume *Resume `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *JobMatch) TableName() string {
	return "job_matches"
}
