package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
)

type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetActiveRole returns the remembered active role for a user, or "" when no
// preference is stored.
func (r *PreferenceRepository) GetActiveRole(username string) (string, error) {
	var pref models.RolePreference
	err := r.db.Where("username = ?", username).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return pref.ActiveRole, nil
}

// SetActiveRole upserts the remembered active role for a user.
func (r *PreferenceRepository) SetActiveRole(username, role string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	pref := models.RolePreference{Username: username, ActiveRole: role}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"active_role", "updated_at"}),
	}).Create(&pref).Error
}
