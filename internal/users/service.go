package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// Service exposes operator account management.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*UserDTO, error)
	List(ctx context.Context) ([]UserDTO, error)
	ChangePassword(ctx context.Context, actorID uuid.UUID, input ChangePasswordInput) error
	AdminResetPassword(ctx context.Context, actorID, targetID uuid.UUID, input ResetPasswordInput) error
	EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error)
}

// CreateInput holds the validated payload to create a user account.
type CreateInput struct {
	Username string
	Password string
	Role     enums.UserRole
}

// ChangePasswordInput carries a self-service password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ResetPasswordInput carries an admin-driven password reset.
type ResetPasswordInput struct {
	NewPassword     string
	ConfirmPassword string
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo        *Repository
	tx          transactor
	recorder    audit.Recorder
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build a user service.
type ServiceParams struct {
	Repo        *Repository
	Tx          transactor
	Recorder    audit.Recorder
	PasswordCfg config.PasswordConfig
}

// NewService constructs a user service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		recorder:    params.Recorder,
		passwordCfg: params.PasswordCfg,
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*UserDTO, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be admin or read_only")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		taken, err := txRepo.UsernameTaken(ctx, username)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeValidation, "username already exists")
		}

		if err := txRepo.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeValidation, "username already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert user")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionCreate,
			EntityType: enums.AuditEntityUser,
			EntityID:   &user.ID,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Created user %s (%s)", user.Username, user.Role),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	dto := FromModel(user)
	return &dto, nil
}

// EnsureBootstrapAdmin creates the first admin account when none exists, so a
// fresh deployment has a login before user management is reachable. The
// account is only created while the users table holds no rows; an empty
// password leaves bootstrapping disabled. Returns whether the account was
// created.
func (s *service) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" || cfg.AdminPassword == "" {
		return false, nil
	}
	if err := validatePassword(cfg.AdminPassword); err != nil {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword, s.passwordCfg)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}

	created := false
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		count, err := txRepo.Count(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count users")
		}
		if count > 0 {
			return nil
		}

		if err := txRepo.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert user")
		}
		created = true

		// The bootstrap account is its own actor; nothing else exists yet.
		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionCreate,
			EntityType: enums.AuditEntityUser,
			EntityID:   &user.ID,
			ActorID:    user.ID,
			Details:    fmt.Sprintf("Bootstrapped admin user %s", user.Username),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return false, err
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bootstrap admin")
	}
	return created, nil
}

func (s *service) List(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	dtos := make([]UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) ChangePassword(ctx context.Context, actorID uuid.UUID, input ChangePasswordInput) error {
	if err := validateNewPasswordPair(input.NewPassword, input.ConfirmPassword); err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	valid, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect")
	}

	return s.storePassword(ctx, actorID, user, input.NewPassword, "Changed own password")
}

func (s *service) AdminResetPassword(ctx context.Context, actorID, targetID uuid.UUID, input ResetPasswordInput) error {
	if err := validateNewPasswordPair(input.NewPassword, input.ConfirmPassword); err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	return s.storePassword(ctx, actorID, user, input.NewPassword, fmt.Sprintf("Reset password for user %s", user.Username))
}

func (s *service) storePassword(ctx context.Context, actorID uuid.UUID, user *models.User, newPassword, details string) error {
	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if err := txRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update password")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionUpdate,
			EntityType: enums.AuditEntityUser,
			EntityID:   &user.ID,
			ActorID:    actorID,
			Details:    details,
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store password")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func validateNewPasswordPair(newPassword, confirmPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	}
	return nil
}
