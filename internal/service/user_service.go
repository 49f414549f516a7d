package service

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/finscale/finscale-api/pkg/storage"
	"github.com/google/uuid"
)

// UserService manages profiles and account settings
type UserService struct {
	users   repository.UserRepository
	shifts  repository.ShiftRepository
	avatars storage.Storage // nil when object storage is unavailable
}

func NewUserService(repos repository.Repositories, avatars storage.Storage) *UserService {
	return &UserService{
		users:   repos.Users,
		shifts:  repos.Shifts,
		avatars: avatars,
	}
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) ([]model.UserResponse, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return model.ToUserResponses(users), nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// UpdateProfile applies only the fields present in req
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req model.UpdateProfileRequest) (*model.UserResponse, error) {
	return s.modify(ctx, id, func(u *model.User) {
		if req.DisplayName != nil {
			u.DisplayName = *req.DisplayName
		}
		if req.Profession != nil {
			u.Profession = *req.Profession
		}
		if req.Specialization != nil {
			u.Specialization = *req.Specialization
		}
		if req.CRM != nil {
			u.CRM = *req.CRM
		}
		if req.PhoneNumber != nil {
			u.PhoneNumber = *req.PhoneNumber
		}
	})
}

func (s *UserService) UpdateNotificationSettings(ctx context.Context, id uuid.UUID, req model.UpdateNotificationSettingsRequest) (*model.UserResponse, error) {
	return s.modify(ctx, id, func(u *model.User) {
		if req.NotificationsEnabled != nil {
			u.NotificationsEnabled = *req.NotificationsEnabled
		}
		if req.ShiftReminders != nil {
			u.ShiftReminders = *req.ShiftReminders
		}
	})
}

// UploadAvatar stores the image and points photo_url at it
var errAvatarsUnavailable = apperrors.Unavailable("file upload service unavailable")

// AvatarsEnabled reports whether object storage is configured
func (s *UserService) AvatarsEnabled() bool {
	return s.avatars != nil
}

func (s *UserService) UploadAvatar(ctx context.Context, id uuid.UUID, r io.Reader, size int64, fileName, contentType string) (*model.UserResponse, error) {
	if s.avatars == nil {
		return nil, errAvatarsUnavailable
	}
	if size > storage.MaxAvatarSize {
		return nil, apperrors.BadRequest("avatar must be at most 5MB")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "user not found")
	}

	result, err := s.avatars.UploadAvatar(ctx, id, r, size, fileName, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, apperrors.BadRequest("avatar must be an image")
		}
		return nil, apperrors.Internal(err)
	}
	log.Printf("🖼️  Avatar uploaded for %s: %s", id, result.Key)

	return s.modify(ctx, id, func(u *model.User) {
		u.PhotoURL = result.URL
	})
}

// Delete removes the account unless the user still holds booked shifts
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	_, held, err := s.shifts.List(ctx, repository.ShiftFilter{
		DoctorID: &id,
		Statuses: []model.ShiftStatus{model.ShiftBooked},
		Limit:    1,
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	if held > 0 {
		return apperrors.Conflict("release or complete your booked shifts before deleting the account")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, "user not found")
	}
	log.Printf("🗑️  User %s deleted", id)
	return nil
}

func (s *UserService) modify(ctx context.Context, id uuid.UUID, change func(*model.User)) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	change(user)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, notFound(err, "user not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}
