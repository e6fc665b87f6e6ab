package transfer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/internal/persons"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var exportHeader = []string{"first_name", "last_name", "email", "department"}

var requiredImportColumns = []string{"first_name", "last_name", "department"}

// Service moves person records in and out as CSV.
type Service interface {
	ImportPersons(ctx context.Context, actorID uuid.UUID, r io.Reader) (*ImportResult, error)
	ExportPersons(ctx context.Context, actorID uuid.UUID, w io.Writer) error
}

// ImportResult reports what an import run did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo      *persons.Repository
	tx        transactor
	recorder  audit.Recorder
	importCfg config.ImportConfig
}

// ServiceParams bundles the dependencies required to build a transfer service.
type ServiceParams struct {
	PersonRepo *persons.Repository
	Tx         transactor
	Recorder   audit.Recorder
	ImportCfg  config.ImportConfig
}

// NewService constructs a transfer service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.PersonRepo == nil {
		return nil, fmt.Errorf("person repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &service{
		repo:      params.PersonRepo,
		tx:        params.Tx,
		recorder:  params.Recorder,
		importCfg: params.ImportCfg,
	}, nil
}

type importRow struct {
	line       int
	firstName  string
	lastName   string
	email      string
	department string
}

// ImportPersons reads the CSV stream and inserts every row whose email is not
// already present. The whole run, audit entries included, commits as a single
// transaction.
func (s *service) ImportPersons(ctx context.Context, actorID uuid.UUID, r io.Reader) (*ImportResult, error) {
	rows, err := s.parseCSV(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		for _, row := range rows {
			exists, err := txRepo.EmailExists(ctx, row.email)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check email")
			}
			if exists {
				result.Skipped++
				continue
			}

			person := &models.Person{
				ID:         uuid.New(),
				FirstName:  row.firstName,
				LastName:   row.lastName,
				Email:      row.email,
				Department: row.department,
			}
			// The insert runs under a savepoint so a constraint violation does
			// not poison the surrounding transaction. A row losing the race to
			// the unique email index counts the same as the pre-check: skipped.
			if err := tx.Transaction(func(inner *gorm.DB) error {
				return s.repo.WithTx(inner).Create(ctx, person)
			}); err != nil {
				if db.IsUniqueViolation(err, "") {
					result.Skipped++
					continue
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert person")
			}

			if err := s.recorder.Record(ctx, tx, audit.Entry{
				Action:     enums.AuditActionCreate,
				EntityType: enums.AuditEntityPerson,
				EntityID:   &person.ID,
				ActorID:    actorID,
				Details:    fmt.Sprintf("Imported person %s %s", person.FirstName, person.LastName),
			}); err != nil {
				return err
			}
			result.Imported++
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "import persons")
	}

	return result, nil
}

// ExportPersons streams every person as CSV. The header row is written even
// when there are no persons. One export audit entry is recorded with no
// entity id.
func (s *service) ExportPersons(ctx context.Context, actorID uuid.UUID, w io.Writer) error {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list persons")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write csv header")
	}
	for _, person := range rows {
		record := []string{person.FirstName, person.LastName, person.Email, person.Department}
		if err := writer.Write(record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write csv row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flush csv")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.recorder.Record(ctx, tx, audit.Entry{
			Action:     enums.AuditActionExport,
			EntityType: enums.AuditEntityPerson,
			ActorID:    actorID,
			Details:    fmt.Sprintf("Exported %d persons", len(rows)),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record export")
	}
	return nil
}

func (s *service) parseCSV(r io.Reader) ([]importRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "csv file is empty")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid csv")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredImportColumns {
		if _, ok := columns[required]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("csv header must contain %q", required))
		}
	}
	emailIdx, hasEmail := columns["email"]

	var rows []importRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid csv row %d", line))
		}

		row := importRow{
			line:       line,
			firstName:  strings.TrimSpace(record[columns["first_name"]]),
			lastName:   strings.TrimSpace(record[columns["last_name"]]),
			department: strings.TrimSpace(record[columns["department"]]),
		}
		if hasEmail && emailIdx < len(record) {
			row.email = strings.TrimSpace(record[emailIdx])
		}
		if row.firstName == "" || row.lastName == "" || row.department == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("csv row %d is missing required fields", line))
		}
		if row.email == "" {
			row.email = s.defaultEmail(row.firstName, row.lastName)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *service) defaultEmail(firstName, lastName string) string {
	domain := s.importCfg.DefaultEmailDomain
	if domain == "" {
		domain = "company.com"
	}
	return strings.ToLower(fmt.Sprintf("%s.%s@%s", firstName, lastName, domain))
}
