package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
)

const maxFailedAttempts = 5

const lockDuration = 15 * time.Minute

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// UpdateLoginAttempt resets the failure counter on success. On failure it
	// increments it and sets LockedUntil once lockAfter attempts are reached.
	UpdateLoginAttempt(ctx context.Context, id int64, success bool, lockAfter int, lockFor time.Duration) error
}

type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	audit      AuditRecorder
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtManager *auth.JWTManager, audit AuditRecorder, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, audit: audit, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Burn a bcrypt round so unknown emails take as long as wrong passwords.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, false, maxFailedAttempts, lockDuration)
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, true, maxFailedAttempts, lockDuration)

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	if s.audit != nil {
		s.audit.LogAsync(ctx, AuditEntry{
			UserID:       user.ID,
			UserRole:     string(user.Role),
			Action:       string(domain.ActionLogin),
			ResourceType: "user",
			ResourceID:   strconv.FormatInt(user.ID, 10),
			IPAddress:    ip,
		})
	}

	s.log.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// The account may have been disabled since the token was issued.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}
}
