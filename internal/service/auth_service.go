package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/google/uuid"
)

const (
	otpLength        = 6
	otpExpiryMinutes = 15
	otpRateLimit     = 3 // max OTPs per hour
)

var errInvalidCredentials = apperrors.Unauthorized("invalid email or password")

// AuthService handles authentication business logic
type AuthService struct {
	users      repository.UserRepository
	otps       repository.OTPRepository
	tokens     repository.TokenRepository
	jwtManager *auth.JWTManager
	blacklist  auth.Blacklist
	mailer     Mailer
	verifier   IdentityVerifier // nil when Firebase is not configured
	now        func() time.Time
}

func NewAuthService(
	repos repository.Repositories,
	jwtManager *auth.JWTManager,
	blacklist auth.Blacklist,
	mailer Mailer,
	verifier IdentityVerifier,
) *AuthService {
	return &AuthService{
		users:      repos.Users,
		otps:       repos.OTPs,
		tokens:     repos.Tokens,
		jwtManager: jwtManager,
		blacklist:  blacklist,
		mailer:     mailer,
		verifier:   verifier,
		now:        time.Now,
	}
}

// ==================== Register / Login ====================

// Register creates an account and signs the user in
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.BadRequest("email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleDoctor
	}

	user := &model.User{
		Email:                email,
		Password:             hash,
		DisplayName:          strings.TrimSpace(req.DisplayName),
		Profession:           req.Profession,
		Specialization:       req.Specialization,
		CRM:                  req.CRM,
		PhoneNumber:          req.PhoneNumber,
		Role:                 role,
		NotificationsEnabled: true,
		ShiftReminders:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest("email already registered")
		}
		return nil, apperrors.Internal(err)
	}

	log.Printf("👤 New %s registered: %s", user.Role, user.Email)
	return s.issue(user)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperrors.Internal(err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, errInvalidCredentials
	}

	return s.issue(user)
}

// LoginWithFirebase exchanges a Firebase ID token for an API token, creating
// or linking the local account on first sign-in
func (s *AuthService) LoginWithFirebase(ctx context.Context, req model.FirebaseLoginRequest) (*model.AuthResponse, error) {
	if s.verifier == nil {
		return nil, apperrors.Unavailable("firebase authentication is not configured")
	}

	identity, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnauthorized, "invalid firebase token", http.StatusUnauthorized)
	}

	user, err := s.users.FindByFirebaseUID(ctx, identity.UID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	if identity.Email == "" {
		return nil, apperrors.BadRequest("firebase account has no email")
	}
	email := normalizeEmail(identity.Email)
	uid := identity.UID

	// Link an existing email account
	user, err = s.users.FindByEmail(ctx, email)
	if err == nil {
		user.FirebaseUID = &uid
		if user.PhotoURL == "" {
			user.PhotoURL = identity.PhotoURL
		}
		if err := s.users.Save(ctx, user); err != nil {
			return nil, apperrors.Internal(err)
		}
		return s.issue(user)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	name := identity.DisplayName
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = &model.User{
		Email:                email,
		DisplayName:          name,
		PhotoURL:             identity.PhotoURL,
		Role:                 model.RoleDoctor,
		FirebaseUID:          &uid,
		NotificationsEnabled: true,
		ShiftReminders:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}
	log.Printf("👤 New doctor registered via Firebase: %s", user.Email)
	return s.issue(user)
}

// ==================== Session ====================

// Logout revokes the token until it would have expired and deactivates the
// device's push token when one is given
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims, tokenString, fcmToken string) error {
	if claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Time.Sub(s.now())
		if err := s.blacklist.Revoke(ctx, tokenString, ttl); err != nil {
			return apperrors.Internal(err)
		}
	}

	if fcmToken != "" {
		if err := s.tokens.Deactivate(ctx, claims.UserID, fcmToken); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("⚠️  Failed to deactivate push token on logout: %v", err)
		}
	}
	return nil
}

// Me returns the current user's profile
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req model.ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, "user not found")
	}

	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// ==================== Forgot/Reset Password ====================

// ForgotPassword emails a reset code. It never reveals whether the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.Internal(err)
	}

	now := s.now()
	count, err := s.otps.CountSince(ctx, user.ID, model.OTPPurposePasswordReset, now.Add(-time.Hour))
	if err != nil {
		return apperrors.Internal(err)
	}
	if count >= otpRateLimit {
		log.Printf("⚠️  Too many reset codes requested for %s", user.Email)
		return nil
	}

	// Invalidate old OTPs
	if err := s.otps.InvalidateAll(ctx, user.ID, model.OTPPurposePasswordReset, now); err != nil {
		return apperrors.Internal(err)
	}

	code, err := generateOTPCode(otpLength)
	if err != nil {
		return apperrors.Internal(err)
	}

	otp := &model.OTPCode{
		UserID:    user.ID,
		Code:      code,
		Purpose:   model.OTPPurposePasswordReset,
		ExpiresAt: now.Add(otpExpiryMinutes * time.Minute),
		CreatedAt: now,
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return apperrors.Internal(err)
	}

	// Send email asynchronously
	go func(email, name string) {
		if err := s.mailer.SendPasswordReset(email, name, code, otpExpiryMinutes); err != nil {
			log.Printf("❌ Failed to send reset email: %v", err)
		}
	}(user.Email, user.DisplayName)

	return nil
}

// ResetPassword verifies the code and sets a new password
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	invalid := apperrors.BadRequest("invalid or expired reset code")

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return apperrors.Internal(err)
	}

	now := s.now()
	otp, err := s.otps.FindValid(ctx, user.ID, req.Code, model.OTPPurposePasswordReset, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return apperrors.Internal(err)
	}

	if err := s.otps.MarkUsed(ctx, otp.ID, now); err != nil {
		return apperrors.Internal(err)
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// ==================== Internal Helpers ====================

func (s *AuthService) issue(user *model.User) (*model.AuthResponse, error) {
	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}
	return &model.AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.jwtManager.Expiry().Seconds()),
		User:      user.ToResponse(),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateOTPCode generates a cryptographically secure random numeric code
func generateOTPCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
