package models

import (
	"time"

	"github.com/google/uuid"
)

// Person is an employee record that inventory items can be assigned to.
type Person struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName  string    `gorm:"column:first_name;not null"`
	LastName   string    `gorm:"column:last_name;not null"`
	Email      string    `gorm:"column:email;not null;uniqueIndex"`
	Department string    `gorm:"column:department;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides gorm's default pluralization ("people").
func (Person) TableName() string {
	return "persons"
}
