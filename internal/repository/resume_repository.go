package repository

import (
	"github.com/atwlabs/semantic-job-matcher/internal/dto"
	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{db}
}

func (r *ResumeRepository) Create(resume *model.Resume) error {
	return r.db.Create(resume).Error
}

func (r *ResumeRepository) FindByID(tenantID, id uuid.UUID) (*model.Resume, error) {
	var resume model.Resume
	err := r.db.First(&resume, "tenant_id = ? AND id = ?", tenantID, id).Error
	return &resume, err
}

// FindByTextPrefix returns the most recent resume whose stored prefix matches.
// Callers still have to verify the longer text to rule out prefix collisions.
func (r *ResumeRepository) FindByTextPrefix(tenantID uuid.UUID, prefix string) (*model.Resume, error) {
	var resume model.Resume
	err := r.db.
		Where("tenant_id = ? AND text_prefix = ?", tenantID, prefix).
		Order("created_at DESC").
		First(&resume).Error
	return &resume, err
}

func (r *ResumeRepository) FindByTextPrefixAndEmail(tenantID uuid.UUID, prefix, email string) (*model.Resume, error) {
	var resume model.Resume
	err := r.db.
		Where("tenant_id = ? AND text_prefix = ? AND email = ?", tenantID, prefix, email).
		Order("created_at DESC").
		First(&resume).Error
	return &resume, err
}

// UpdateContact backfills contact fields. Empty values are skipped so an
// earlier upload's data is never wiped by a later anonymous one.
func (r *ResumeRepository) UpdateContact(tenantID, id uuid.UUID, email, ip string) (*model.Resume, error) {
	updates := map[string]any{}
	if email != "" {
		updates["email"] = email
	}
	if ip != "" {
		updates["ip_address"] = ip
	}

	if len(updates) > 0 {
		err := r.db.Model(&model.Resume{}).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			Updates(updates).Error
		if err != nil {
			return nil, err
		}
	}

	return r.FindByID(tenantID, id)
}

func (r *ResumeRepository) Stats(tenantID uuid.UUID) (dto.TenantAnalytics, error) {
	var stats dto.TenantAnalytics
	err := r.db.Raw(`
        SELECT
            COUNT(*) AS total_uploads,
            COUNT(DISTINCT email) FILTER (WHERE email <> '') AS unique_emails,
            COUNT(DISTINCT ip_address) FILTER (WHERE ip_address <> '') AS unique_ips,
            COUNT(*) FILTER (WHERE email <> '') AS uploads_with_email,
            COUNT(*) FILTER (WHERE ip_address <> '') AS uploads_with_ip
        FROM resumes
        WHERE tenant_id = ?
    `, tenantID).Scan(&stats).Error
	return stats, err
}
