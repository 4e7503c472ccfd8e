package users

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martinreyes/filehub-backend/pkg/db/models"
)

// Repository exposes user persistence operations. Writes take the unit of
// work's transaction so they commit together with the outbox rows.
type Repository struct{}

// NewRepository constructs a users repo.
func NewRepository() *Repository {
	return &Repository{}
}

// Insert persists a new user row on the given transaction.
func (r *Repository) Insert(tx *gorm.DB, user *models.User) error {
	return tx.Create(user).Error
}

// Update writes the mutable user columns on the given transaction.
func (r *Repository) Update(tx *gorm.DB, user *models.User) error {
	return tx.Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"display_name": user.DisplayName,
			"active":       user.Active,
			"updated_at":   user.UpdatedAt,
		}).Error
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
