package persons

import (
	"time"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/google/uuid"
)

// PersonDTO is the employee payload returned to clients.
type PersonDTO struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AssignedItemDTO summarizes an inventory item on the person detail view.
type AssignedItemDTO struct {
	ID           uuid.UUID `json:"id"`
	ItemType     string    `json:"item_type"`
	SerialNumber string    `json:"serial_number"`
	Details      string    `json:"details"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// PersonDetailDTO is a person together with the items assigned to them.
type PersonDetailDTO struct {
	Person PersonDTO         `json:"person"`
	Items  []AssignedItemDTO `json:"items"`
}

// FromModel maps a persisted person to its DTO.
func FromModel(person *models.Person) PersonDTO {
	return PersonDTO{
		ID:         person.ID,
		FirstName:  person.FirstName,
		LastName:   person.LastName,
		Email:      person.Email,
		Department: person.Department,
		CreatedAt:  person.CreatedAt,
		UpdatedAt:  person.UpdatedAt,
	}
}

func assignedItemFromModel(item models.InventoryItem) AssignedItemDTO {
	return AssignedItemDTO{
		ID:           item.ID,
		ItemType:     item.ItemType,
		SerialNumber: item.SerialNumber,
		Details:      item.Details,
		Status:       string(item.Status),
		CreatedAt:    item.CreatedAt,
	}
}
