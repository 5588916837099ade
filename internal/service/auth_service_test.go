package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/config"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*AuthService, *memUsers, *recordingAudit) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &memUsers{byID: map[int64]*domain.User{
		1: {ID: 1, Email: "admin@clinic.test", PasswordHash: string(hash), Role: domain.RoleAdmin, IsActive: true},
		2: {ID: 2, Email: "gone@clinic.test", PasswordHash: string(hash), Role: domain.RoleVet, IsActive: false},
	}}
	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "vetcare-test",
	})
	audit := &recordingAudit{}
	return NewAuthService(users, jwt, audit, zap.NewNop()), users, audit
}

func TestAuthService_Login(t *testing.T) {
	svc, _, audit := newAuthService(t)

	pair, err := svc.Login(context.Background(), "admin@clinic.test", "correct horse battery", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "login", entries[0].Action)

	refreshed, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.RefreshToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "nobody@clinic.test", "whatever", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "gone@clinic.test", "correct horse battery", "")
	assert.ErrorIs(t, err, ErrAccountInactive)

	for i := 0; i < maxFailedAttempts; i++ {
		_, err = svc.Login(ctx, "admin@clinic.test", "wrong", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err = svc.Login(ctx, "admin@clinic.test", "correct horse battery", "")
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.Len(t, users.attempts, maxFailedAttempts)
}
