package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// JobEmbedding stores only the vector and the skill snapshot for an external
// job posting. Title, description and the rest of the record stay in the
// external catalog; ExternalJobID is the join key back to it.
type JobEmbedding struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_job_embeddings_tenant_job,priority:1" json:"tenant_id"`
	ExternalJobID  string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_job_embeddings_tenant_job,priority:2" json:"external_job_id"`
	RequiredSkills []string        `gorm:"serializer:json;type:jsonb" json:"required_skills"`
	Embedding      pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (j *JobEmbedding) TableName() string {
	return "job_embeddings"
}
