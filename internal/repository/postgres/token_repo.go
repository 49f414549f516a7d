package postgres

import (
	"context"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepository stores FCM device tokens
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Register adds or reactivates a token. A token seen again under another
// account moves to that account.
func (r *TokenRepository) Register(ctx context.Context, userID uuid.UUID, token, deviceType string) error {
	now := time.Now().UTC()
	row := model.FCMToken{
		UserID:       userID,
		Token:        token,
		DeviceType:   deviceType,
		Active:       true,
		LastActiveAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"user_id":        userID,
			"device_type":    deviceType,
			"active":         true,
			"last_active_at": now,
			"updated_at":     now,
		}),
	}).Create(&row).Error
}

func (r *TokenRepository) Deactivate(ctx context.Context, userID uuid.UUID, token string) error {
	res := r.db.WithContext(ctx).Model(&model.FCMToken{}).
		Where("user_id = ? AND token = ?", userID, token).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeactivateTokens disables tokens FCM reported as invalid
func (r *TokenRepository) DeactivateTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.FCMToken{}).
		Where("token IN ?", tokens).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now().UTC()}).Error
}

func (r *TokenRepository) ActiveTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&model.FCMToken{}).
		Where("user_id = ? AND active", userID).
		Order("last_active_at DESC").
		Pluck("token", &tokens).Error
	return tokens, err
}
