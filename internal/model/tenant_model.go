package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary. API keys are issued out of band; this
// service only resolves them.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	APIKey    string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Tenant) TableName() string {
	return "tenants"
}
