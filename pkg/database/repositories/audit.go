package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
	"github.com/mhrivnak/ssvirt-console/pkg/database/pagination"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one audit event.
func (r *AuditRepository) Record(event *models.AuditEvent) error {
	if event == nil {
		return errors.New("audit event cannot be nil")
	}
	return r.db.Create(event).Error
}

// List returns events newest-first.
func (r *AuditRepository) List(limit, offset int) ([]models.AuditEvent, error) {
	limit, offset = pagination.ClampPaginationParams(limit, offset)

	var events []models.AuditEvent
	err := r.db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&events).Error
	return events, err
}

// ListByUsername returns one user's events newest-first.
func (r *AuditRepository) ListByUsername(username string, limit, offset int) ([]models.AuditEvent, error) {
	limit, offset = pagination.ClampPaginationParams(limit, offset)

	var events []models.AuditEvent
	err := r.db.Where("username = ?", username).
		Limit(limit).Offset(offset).Order("created_at DESC").Find(&events).Error
	return events, err
}

// Count returns the total number of recorded events.
func (r *AuditRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.AuditEvent{}).Count(&count).Error
	return count, err
}
