package persons

import (
	"context"
	"testing"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePersonFieldsRequiresEverything(t *testing.T) {
	cases := []struct {
		name  string
		input [4]string
	}{
		{"missing first name", [4]string{"  ", "Doe", "jane@corp.test", "IT"}},
		{"missing last name", [4]string{"Jane", "", "jane@corp.test", "IT"}},
		{"missing email", [4]string{"Jane", "Doe", "   ", "IT"}},
		{"missing department", [4]string{"Jane", "Doe", "jane@corp.test", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalizePersonFields(tc.input[0], tc.input[1], tc.input[2], tc.input[3])
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}

	fields, err := normalizePersonFields(" Jane ", " Doe ", " jane@corp.test ", " IT ")
	require.NoError(t, err)
	assert.Equal(t, "Jane", fields.firstName)
	assert.Equal(t, "Doe", fields.lastName)
	assert.Equal(t, "jane@corp.test", fields.email)
	assert.Equal(t, "IT", fields.department)
}

func TestServiceCreatePersistsAndAudits(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	actor := uuid.New()

	dto, err := svc.Create(context.Background(), actor, CreateInput{
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane.doe@corp.test",
		Department: "Engineering",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", dto.FirstName)
	assert.NotEqual(t, uuid.Nil, dto.ID)

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.AuditActionCreate, logs[0].Action)
	assert.Equal(t, enums.AuditEntityPerson, logs[0].EntityType)
	require.NotNil(t, logs[0].EntityID)
	assert.Equal(t, dto.ID, *logs[0].EntityID)
	assert.Equal(t, actor, logs[0].ActorID)
}

func TestServiceCreateRejectsDuplicateEmail(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	mustSeedPerson(t, db, "First", "User", "taken@corp.test", "IT")

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		FirstName:  "Second",
		LastName:   "User",
		Email:      "taken@corp.test",
		Department: "IT",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// rejected create must leave no person and no audit row behind
	var count int64
	require.NoError(t, db.Model(&models.Person{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Zero(t, auditCount(t, db))
}

func TestServiceUpdateNotFound(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), UpdateInput{
		FirstName:  "Ghost",
		LastName:   "User",
		Email:      "ghost@corp.test",
		Department: "IT",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestServiceUpdateKeepsOwnEmail(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	person := mustSeedPerson(t, db, "Jane", "Doe", "jane@corp.test", "IT")

	dto, err := svc.Update(context.Background(), uuid.New(), person.ID, UpdateInput{
		FirstName:  "Jane",
		LastName:   "Smith",
		Email:      "jane@corp.test",
		Department: "Platform",
	})
	require.NoError(t, err)
	assert.Equal(t, "Smith", dto.LastName)
	assert.Equal(t, "Platform", dto.Department)
	assert.EqualValues(t, 1, auditCount(t, db))
}

func TestServiceUpdateRejectsEmailOfAnotherPerson(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	mustSeedPerson(t, db, "First", "User", "first@corp.test", "IT")
	second := mustSeedPerson(t, db, "Second", "User", "second@corp.test", "IT")

	_, err := svc.Update(context.Background(), uuid.New(), second.ID, UpdateInput{
		FirstName:  "Second",
		LastName:   "User",
		Email:      "first@corp.test",
		Department: "IT",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestServiceDeleteBlockedByAssignedItems(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	person := mustSeedPerson(t, db, "Jane", "Doe", "jane@corp.test", "IT")
	mustSeedItem(t, db, "SN-100", &person.ID)

	err := svc.Delete(context.Background(), uuid.New(), person.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.Person{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Zero(t, auditCount(t, db))
}

func TestServiceDeleteRemovesAndAudits(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	person := mustSeedPerson(t, db, "Jane", "Doe", "jane@corp.test", "IT")
	mustSeedItem(t, db, "SN-200", nil)

	require.NoError(t, svc.Delete(context.Background(), uuid.New(), person.ID))

	var count int64
	require.NoError(t, db.Model(&models.Person{}).Count(&count).Error)
	assert.Zero(t, count)

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.AuditActionDelete, logs[0].Action)
}

func TestServiceSearchMatchesAcrossFields(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	mustSeedPerson(t, db, "Alice", "Nguyen", "alice@corp.test", "Engineering")
	mustSeedPerson(t, db, "Bob", "Stone", "bob@corp.test", "Finance")

	all, err := svc.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].FirstName)

	byName, err := svc.Search(context.Background(), "nguy")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Alice", byName[0].FirstName)

	byDepartment, err := svc.Search(context.Background(), "FINANCE")
	require.NoError(t, err)
	require.Len(t, byDepartment, 1)
	assert.Equal(t, "Bob", byDepartment[0].FirstName)

	byEmail, err := svc.Search(context.Background(), "bob@")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)

	none, err := svc.Search(context.Background(), "zz-no-match")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServiceGetIncludesAssignedItems(t *testing.T) {
	db := setupPersonsTestDB(t)
	svc := newTestService(t, db)
	person := mustSeedPerson(t, db, "Jane", "Doe", "jane@corp.test", "IT")
	other := mustSeedPerson(t, db, "Bob", "Stone", "bob@corp.test", "IT")
	mustSeedItem(t, db, "SN-1", &person.ID)
	mustSeedItem(t, db, "SN-2", &person.ID)
	mustSeedItem(t, db, "SN-3", &other.ID)
	mustSeedItem(t, db, "SN-4", nil)

	detail, err := svc.Get(context.Background(), person.ID)
	require.NoError(t, err)
	assert.Equal(t, person.ID, detail.Person.ID)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, "SN-1", detail.Items[0].SerialNumber)
	assert.Equal(t, string(enums.ItemStatusActive), detail.Items[0].Status)

	_, err = svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
