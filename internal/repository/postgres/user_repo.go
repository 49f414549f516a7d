package postgres

import (
	"context"
	"strings"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByFirebaseUID finds a user linked to a Firebase Auth account
func (r *UserRepository) FindByFirebaseUID(ctx context.Context, uid string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", uid).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// List searches users by name or email and exact specialization/profession
func (r *UserRepository) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	limit := filter.Limit
	if limit < 1 || limit > repository.MaxUserList {
		limit = repository.MaxUserList
	}

	q := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where("display_name ILIKE ? OR email ILIKE ?", like, like)
	}
	if filter.Specialization != "" {
		q = q.Where("specialization = ?", filter.Specialization)
	}
	if filter.Profession != "" {
		q = q.Where("profession = ?", filter.Profession)
	}

	var users []model.User
	err := q.Order("display_name ASC").Limit(limit).Find(&users).Error
	return users, err
}

// Save updates the profile columns of an existing user
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"display_name":          user.DisplayName,
			"profession":            user.Profession,
			"specialization":        user.Specialization,
			"crm":                   user.CRM,
			"phone_number":          user.PhoneNumber,
			"photo_url":             user.PhotoURL,
			"firebase_uid":          user.FirebaseUID,
			"notifications_enabled": user.NotificationsEnabled,
			"shift_reminders":       user.ShiftReminders,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdatePassword updates a user's password
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete soft-deletes a user
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
