package persons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes employee management operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*PersonDTO, error)
	Update(ctx context.Context, actorID, personID uuid.UUID, input UpdateInput) (*PersonDTO, error)
	Delete(ctx context.Context, actorID, personID uuid.UUID) error
	Search(ctx context.Context, query string) ([]PersonDTO, error)
	Get(ctx context.Context, personID uuid.UUID) (*PersonDetailDTO, error)
}

// CreateInput holds the validated payload to create a person.
type CreateInput struct {
	FirstName  string
	LastName   string
	Email      string
	Department string
}

// UpdateInput holds the payload for a full person update.
type UpdateInput struct {
	FirstName  string
	LastName   string
	Email      string
	Department string
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     *Repository
	tx       transactor
	recorder audit.Recorder
}

// ServiceParams bundles the dependencies required to build a person service.
type ServiceParams struct {
	Repo     *Repository
	Tx       transactor
	Recorder audit.Recorder
}

// NewService constructs a person service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("person repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		recorder: params.Recorder,
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*PersonDTO, error) {
	fields, err := normalizePersonFields(input.FirstName, input.LastName, input.Email, input.Department)
	if err != nil {
		return nil, err
	}

	person := &models.Person{
		ID:         uuid.New(),
		FirstName:  fields.firstName,
		LastName:   fields.lastName,
		Email:      fields.email,
		Department: fields.department,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		taken, err := txRepo.EmailTaken(ctx, fields.email, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeValidation, "email already exists")
		}

		if err := txRepo.Create(ctx, person); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeValidation, "email already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert person")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionCreate,
			EntityType: enums.AuditEntityPerson,
			EntityID:   &person.ID,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Created person %s %s", person.FirstName, person.LastName),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create person")
	}

	created, err := s.repo.FindByID(ctx, person.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load person")
	}
	dto := FromModel(created)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actorID, personID uuid.UUID, input UpdateInput) (*PersonDTO, error) {
	fields, err := normalizePersonFields(input.FirstName, input.LastName, input.Email, input.Department)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		person, err := txRepo.FindByID(ctx, personID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load person")
		}

		taken, err := txRepo.EmailTaken(ctx, fields.email, &personID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeValidation, "email already exists")
		}

		person.FirstName = fields.firstName
		person.LastName = fields.lastName
		person.Email = fields.email
		person.Department = fields.department

		if err := txRepo.Update(ctx, person); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeValidation, "email already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update person")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionUpdate,
			EntityType: enums.AuditEntityPerson,
			EntityID:   &personID,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Updated person %s %s", person.FirstName, person.LastName),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update person")
	}

	updated, err := s.repo.FindByID(ctx, personID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load person")
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actorID, personID uuid.UUID) error {
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		person, err := txRepo.FindByID(ctx, personID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load person")
		}

		assigned, err := txRepo.CountAssignedItems(ctx, personID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count assigned items")
		}
		if assigned > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot delete employee with assigned items")
		}

		if err := txRepo.Delete(ctx, personID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete person")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionDelete,
			EntityType: enums.AuditEntityPerson,
			EntityID:   &personID,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Deleted person %s %s", person.FirstName, person.LastName),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete person")
	}
	return nil
}

func (s *service) Search(ctx context.Context, query string) ([]PersonDTO, error) {
	rows, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search persons")
	}

	dtos := make([]PersonDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, personID uuid.UUID) (*PersonDetailDTO, error) {
	person, err := s.repo.FindByID(ctx, personID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load person")
	}

	items, err := s.repo.ItemsAssignedTo(ctx, personID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assigned items")
	}

	detail := &PersonDetailDTO{
		Person: FromModel(person),
		Items:  make([]AssignedItemDTO, 0, len(items)),
	}
	for _, item := range items {
		detail.Items = append(detail.Items, assignedItemFromModel(item))
	}
	return detail, nil
}

type personFields struct {
	firstName  string
	lastName   string
	email      string
	department string
}

func normalizePersonFields(firstName, lastName, email, department string) (personFields, error) {
	fields := personFields{
		firstName:  strings.TrimSpace(firstName),
		lastName:   strings.TrimSpace(lastName),
		email:      strings.TrimSpace(email),
		department: strings.TrimSpace(department),
	}
	if fields.firstName == "" {
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	}
	if fields.lastName == "" {
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "last_name is required")
	}
	if fields.email == "" {
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if fields.department == "" {
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "department is required")
	}
	return fields, nil
}
