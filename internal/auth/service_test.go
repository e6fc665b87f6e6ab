package auth

import (
	"context"
	"testing"
	"time"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	pkgAuth "github.com/assetdesk/assetdesk-backend/pkg/auth"
	"github.com/assetdesk/assetdesk-backend/pkg/auth/session"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'read_only',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT,
  actor_id TEXT NOT NULL,
  details TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTransactor struct {
	db *gorm.DB
}

func (g gormTransactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type stubSessionManager struct {
	refreshToken string
	rotated      string
	revoked      []string
	rotateErr    error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	s.rotated = oldAccessID
	return session.NewAccessID(), "rotated-refresh", nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "assetdesk", ExpirationMinutes: 30}
}

func newTestAuthService(t *testing.T, db *gorm.DB) (Service, *stubSessionManager) {
	t.Helper()
	recorder, err := audit.NewRecorder(audit.NewRepository(db))
	require.NoError(t, err)
	mgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		Tx:             gormTransactor{db: db},
		SessionManager: mgr,
		Recorder:       recorder,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)
	return svc, mgr
}

func mustSeedUser(t *testing.T, db *gorm.DB, username, password string, role enums.UserRole, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestServiceLoginMintsTokenAndAudits(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, _ := newTestAuthService(t, db)
	user := mustSeedUser(t, db, "alice", "correct horse", enums.UserRoleAdmin, true)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.AuditActionLogin, logs[0].Action)
	assert.Equal(t, user.ID, logs[0].ActorID)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	require.NotNil(t, stored.LastLoginAt)
	assert.WithinDuration(t, time.Now().UTC(), *stored.LastLoginAt, time.Minute)
}

func TestServiceLoginFailuresWriteNoAudit(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, _ := newTestAuthService(t, db)
	mustSeedUser(t, db, "alice", "correct horse", enums.UserRoleAdmin, true)
	mustSeedUser(t, db, "inactive", "correct horse", enums.UserRoleAdmin, false)

	cases := []LoginRequest{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "correct horse"},
		{Username: "inactive", Password: "correct horse"},
		{Username: "  ", Password: "correct horse"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "expected typed error for %q", req.Username)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		assert.Equal(t, invalidCredentialsMessage, typed.Message())
	}

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceLogoutRevokesAndAudits(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, mgr := newTestAuthService(t, db)
	user := mustSeedUser(t, db, "alice", "correct horse", enums.UserRoleAdmin, true)

	require.NoError(t, svc.Logout(context.Background(), user.ID, "access-123"))
	assert.Equal(t, []string{"access-123"}, mgr.revoked)

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.AuditActionLogout, logs[0].Action)
}

func TestServiceLogoutRejectsMissingSession(t *testing.T) {
	svc, _ := newTestAuthService(t, setupAuthTestDB(t))

	err := svc.Logout(context.Background(), uuid.Nil, "access-123")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestServiceRefreshRotatesPair(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, mgr := newTestAuthService(t, db)
	user := mustSeedUser(t, db, "alice", "correct horse", enums.UserRoleReadOnly, true)

	login, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.Equal(t, "rotated-refresh", resp.RefreshToken)
	assert.NotEmpty(t, mgr.rotated)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleReadOnly, claims.Role)
}

func TestServiceRefreshRejectsInvalidToken(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, mgr := newTestAuthService(t, db)
	mustSeedUser(t, db, "alice", "correct horse", enums.UserRoleReadOnly, true)
	mgr.rotateErr = session.ErrInvalidRefreshToken

	login, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "stale",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "garbage",
		RefreshToken: "stale",
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
