package items

import (
	"time"

	"github.com/google/uuid"
)

// ItemDTO is the inventory item payload returned to clients.
type ItemDTO struct {
	ID           uuid.UUID          `json:"id"`
	ItemType     string             `json:"item_type"`
	SerialNumber string             `json:"serial_number"`
	Details      string             `json:"details"`
	Status       string             `json:"status"`
	AssignedTo   *AssignedPersonDTO `json:"assigned_to,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// AssignedPersonDTO summarizes the item's current owner.
type AssignedPersonDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

func fromRow(row itemRow) ItemDTO {
	dto := ItemDTO{
		ID:           row.ID,
		ItemType:     row.ItemType,
		SerialNumber: row.SerialNumber,
		Details:      row.Details,
		Status:       string(row.Status),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.AssignedToID != nil && row.AssignedFirstName != nil && row.AssignedLastName != nil {
		dto.AssignedTo = &AssignedPersonDTO{
			ID:        *row.AssignedToID,
			FirstName: *row.AssignedFirstName,
			LastName:  *row.AssignedLastName,
		}
	}
	return dto
}
