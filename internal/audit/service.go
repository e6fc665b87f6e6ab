package audit

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service exposes the admin audit trail.
type Service interface {
	List(ctx context.Context, params pagination.Params) (*LogListResult, error)
}

// LogDTO is the audit row payload returned to clients.
type LogDTO struct {
	ID         uuid.UUID  `json:"id"`
	Action     string     `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	ActorID    uuid.UUID  `json:"actor_id"`
	Details    string     `json:"details"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LogListResult wraps one page of audit rows and the cursor for the next.
type LogListResult struct {
	Logs   []LogDTO `json:"logs"`
	Cursor string   `json:"cursor"`
}

type service struct {
	repo *Repository
}

// NewService constructs the audit service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*LogListResult, error) {
	query := listParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}

	logs := make([]LogDTO, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, LogDTO{
			ID:         row.ID,
			Action:     string(row.Action),
			EntityType: string(row.EntityType),
			EntityID:   row.EntityID,
			ActorID:    row.ActorID,
			Details:    row.Details,
			CreatedAt:  row.CreatedAt,
		})
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &LogListResult{Logs: logs, Cursor: cursor}, nil
}
