package items

import (
	"context"
	"testing"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupItemsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS persons (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  department TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
  id TEXT PRIMARY KEY,
  item_type TEXT NOT NULL,
  serial_number TEXT NOT NULL UNIQUE,
  details TEXT,
  status TEXT NOT NULL DEFAULT 'stock',
  assigned_to_id TEXT,
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

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	recorder, err := audit.NewRecorder(audit.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Tx:       gormTransactor{db: db},
		Recorder: recorder,
	})
	require.NoError(t, err)
	return svc
}

func mustSeedPerson(t *testing.T, db *gorm.DB, first, last, email string) *models.Person {
	t.Helper()
	person := &models.Person{
		ID:         uuid.New(),
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Department: "IT",
	}
	require.NoError(t, db.Create(person).Error)
	return person
}

func auditCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	return count
}
