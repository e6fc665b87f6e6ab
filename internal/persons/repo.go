package persons

import (
	"context"
	"strings"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wraps person persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the person.
func (r *Repository) Create(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).Create(person).Error
}

// Update saves all mutable columns of the person.
func (r *Repository) Update(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).
		Model(&models.Person{}).
		Where("id = ?", person.ID).
		Updates(map[string]any{
			"first_name": person.FirstName,
			"last_name":  person.LastName,
			"email":      person.Email,
			"department": person.Department,
		}).Error
}

// Delete removes the person row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Person{}, "id = ?", id).Error
}

// FindByID loads one person.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	var person models.Person
	if err := r.db.WithContext(ctx).First(&person, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

// EmailTaken reports whether another person already uses the email. The
// comparison is exact; excludeID skips the caller's own row on updates.
func (r *Repository) EmailTaken(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Person{}).Where("email = ?", email)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// EmailExists reports whether any person uses the email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.EmailTaken(ctx, email, nil)
}

// Search returns persons matching the query as a case-insensitive substring
// over name, email, and department. An empty query returns everyone in
// insertion order.
func (r *Repository) Search(ctx context.Context, query string) ([]models.Person, error) {
	qb := r.db.WithContext(ctx).Model(&models.Person{})
	if search := strings.TrimSpace(query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(department) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}

	var rows []models.Person
	if err := qb.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every person in insertion order.
func (r *Repository) ListAll(ctx context.Context) ([]models.Person, error) {
	return r.Search(ctx, "")
}

// ItemsAssignedTo returns the inventory items currently assigned to the person.
func (r *Repository) ItemsAssignedTo(ctx context.Context, personID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("assigned_to_id = ?", personID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CountAssignedItems counts items referencing the person.
func (r *Repository) CountAssignedItems(ctx context.Context, personID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("assigned_to_id = ?", personID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
