package repository

import (
	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"gorm.io/gorm"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db}
}

func (r *TenantRepository) FindByAPIKey(apiKey string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.First(&tenant, "api_key = ?", apiKey).Error
	return &tenant, err
}
