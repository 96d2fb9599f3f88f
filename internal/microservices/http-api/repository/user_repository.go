package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByLogin accepts either a username or an email address.
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
	UpdateRole(ctx context.Context, id, role string) error
	UpdateProfileImage(ctx context.Context, id string, imageID *string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error

	FindByExternalLogin(ctx context.Context, provider, providerUserID string) (*models.User, error)
	AddExternalLogin(ctx context.Context, login *models.ExternalLogin) error
}

// userRepository is the GORM implementation of UserRepository.
type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "user")
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	// return nil on error so a zero-value user never looks like a hit
	if err := r.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(username)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", login, login).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if s := strings.TrimSpace(search); s != "" {
			return db.Where(likeAny("username", "display_name", "email"), repeat(containsPattern(s), 3)...)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset(offset(page, pageSize)).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) updateColumn(ctx context.Context, id, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	return r.updateColumn(ctx, id, "display_name", displayName)
}

func (r *userRepository) UpdateRole(ctx context.Context, id, role string) error {
	return r.updateColumn(ctx, id, "role", role)
}

func (r *userRepository) UpdateProfileImage(ctx context.Context, id string, imageID *string) error {
	return r.updateColumn(ctx, id, "profile_image_id", imageID)
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
}

// Delete removes the user with their comments, ratings, logins and tokens.
// Applications they own stay and lose their owner.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Application{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
			return fmt.Errorf("orphan applications: %w", err)
		}
		for _, m := range []any{&models.Comment{}, &models.Rating{}, &models.ExternalLogin{}, &models.RefreshToken{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete user data: %w", err)
			}
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *userRepository) FindByExternalLogin(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	var login models.ExternalLogin
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&login).Error; err != nil {
		return nil, err
	}
	if login.User == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return login.User, nil
}

func (r *userRepository) AddExternalLogin(ctx context.Context, login *models.ExternalLogin) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(login).Error, "external login")
}
