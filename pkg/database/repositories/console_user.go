package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mhrivnak/ssvirt-console/pkg/database/models"
)

type ConsoleUserRepository struct {
	db *gorm.DB
}

func NewConsoleUserRepository(db *gorm.DB) *ConsoleUserRepository {
	return &ConsoleUserRepository{db: db}
}

func (r *ConsoleUserRepository) Create(user *models.ConsoleUser) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.db.Create(user).Error
}

func (r *ConsoleUserRepository) GetByUsername(username string) (*models.ConsoleUser, error) {
	var user models.ConsoleUser
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser creates the user if no account with its username exists yet.
// Used to seed dev-mode fixtures idempotently.
func (r *ConsoleUserRepository) EnsureUser(user *models.ConsoleUser) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	var existing models.ConsoleUser
	err := r.db.Where("username = ?", user.Username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(user).Error
}

func (r *ConsoleUserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.ConsoleUser{}).Count(&count).Error
	return count, err
}
