package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Resume rows are immutable after creation except Email and IPAddress, which
// may be backfilled by later uploads of the same document.
type Resume struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_resumes_tenant_prefix,priority:1" json:"tenant_id"`
	Filename        string          `gorm:"type:varchar(255)" json:"filename"`
	RawText         string          `gorm:"type:text;not null" json:"-"`
	TextPrefix      string          `gorm:"type:varchar(100);not null;index:idx_resumes_tenant_prefix,priority:2" json:"-"`
	Skills          []string        `gorm:"serializer:json;type:jsonb" json:"skills"`
	ExperienceYears float64         `gorm:"type:float;not null;default:0" json:"experience_years"`
	Embedding       pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	Email           string          `gorm:"type:varchar(255)" json:"email,omitempty"`
	IPAddress       string          `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (r *Resume) TableName() string {
	return "resumes"
}
