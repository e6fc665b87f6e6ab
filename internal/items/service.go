package items

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

// Service exposes inventory item management operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*ItemDTO, error)
	Update(ctx context.Context, actorID, itemID uuid.UUID, input UpdateInput) (*ItemDTO, error)
	Delete(ctx context.Context, actorID, itemID uuid.UUID) error
	Search(ctx context.Context, query string) ([]ItemDTO, error)
	Get(ctx context.Context, itemID uuid.UUID) (*ItemDTO, error)
}

// CreateInput holds the validated payload to create an item.
type CreateInput struct {
	ItemType     string
	SerialNumber string
	Details      string
	AssignedToID *uuid.UUID
}

// UpdateInput holds the payload for a full item update.
type UpdateInput struct {
	ItemType     string
	SerialNumber string
	Details      string
	AssignedToID *uuid.UUID
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     *Repository
	tx       transactor
	recorder audit.Recorder
}

// ServiceParams bundles the dependencies required to build an item service.
type ServiceParams struct {
	Repo     *Repository
	Tx       transactor
	Recorder audit.Recorder
}

// NewService constructs an item service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("item repository is required")
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

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*ItemDTO, error) {
	fields, err := normalizeItemFields(input.ItemType, input.SerialNumber, input.Details)
	if err != nil {
		return nil, err
	}

	item := &models.InventoryItem{
		ID:           uuid.New(),
		ItemType:     fields.itemType,
		SerialNumber: fields.serialNumber,
		Details:      fields.details,
		Status:       enums.DeriveItemStatus(input.AssignedToID != nil),
		AssignedToID: input.AssignedToID,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		taken, err := txRepo.SerialTaken(ctx, fields.serialNumber, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check serial")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeValidation, "serial number already exists")
		}

		if err := s.ensureAssignee(ctx, txRepo, input.AssignedToID); err != nil {
			return err
		}

		if err := txRepo.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeValidation, "serial number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert item")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionCreate,
			EntityType: enums.AuditEntityInventoryItem,
			EntityID:   &item.ID,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Created item %s (%s)", item.ItemType, item.SerialNumber),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}

	return s.Get(ctx, item.ID)
}

func (s *service) Update(ctx context.Context, actorID, itemID uuid.UUID, input UpdateInput) (*ItemDTO, error) {
	fields, err := normalizeItemFields(input.ItemType, input.SerialNumber, input.Details)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := txRepo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
		}

		taken, err := txRepo.SerialTaken(ctx, fields.serialNumber, &itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check serial")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeValidation, "serial number already exists")
		}

		if err := s.ensureAssignee(ctx, txRepo, input.AssignedToID); err != nil {
			return err
		}

		item.ItemType = fields.itemType
		item.SerialNumber = fields.serialNumber
		item.Details = fields.details
		item.AssignedToID = input.AssignedToID
		item.Status = enums.DeriveItemStatus(input.AssignedToID != nil)

		if err := txRepo.Update(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeValidation, "serial number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update item")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionUpdate,
			EntityType: enums.AuditEntityInventoryItem,
			EntityID:   &itemID,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Updated item %s (%s)", item.ItemType, item.SerialNumber),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}

	return s.Get(ctx, itemID)
}

func (s *service) Delete(ctx context.Context, actorID, itemID uuid.UUID) error {
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := txRepo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
		}

		if err := txRepo.Delete(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete item")
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionDelete,
			EntityType: enums.AuditEntityInventoryItem,
			EntityID:   &itemID,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Deleted item %s (%s)", item.ItemType, item.SerialNumber),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
	}
	return nil
}

func (s *service) Search(ctx context.Context, query string) ([]ItemDTO, error) {
	rows, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search items")
	}

	dtos := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, fromRow(row))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*ItemDTO, error) {
	row, err := s.repo.GetRow(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	dto := fromRow(*row)
	return &dto, nil
}

func (s *service) ensureAssignee(ctx context.Context, repo *Repository, assignedToID *uuid.UUID) error {
	if assignedToID == nil {
		return nil
	}
	if *assignedToID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assigned_to_id is invalid")
	}
	exists, err := repo.PersonExists(ctx, *assignedToID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check assignee")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, "assigned person not found")
	}
	return nil
}

type itemFields struct {
	itemType     string
	serialNumber string
	details      string
}

func normalizeItemFields(itemType, serialNumber, details string) (itemFields, error) {
	fields := itemFields{
		itemType:     strings.TrimSpace(itemType),
		serialNumber: strings.TrimSpace(serialNumber),
		details:      strings.TrimSpace(details),
	}
	if fields.itemType == "" {
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "item_type is required")
	}
	if fields.serialNumber == "" {
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "serial_number is required")
	}
	return fields, nil
}
