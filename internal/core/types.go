// Package core provides the business logic for the CRM import/export pipeline.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"encoding/json"
	"time"
)

// EntityType identifies an importable/exportable entity.
type EntityType string

const (
	EntityPeople    EntityType = "people"
	EntityCompanies EntityType = "companies"
	EntitySchools   EntityType = "schools"
)

// ParseEntityType validates a raw entity type string.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityPeople, EntityCompanies, EntitySchools:
		return EntityType(s), nil
	case "":
		return "", Validationf("entity type is required")
	default:
		return "", Validationf("unknown entity type %q", s)
	}
}

// Person is a contact.
type Person struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name"`
	MiddleName    string    `json:"middle_name,omitempty"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	Zip           string    `json:"zip,omitempty"`
	IsDonor       bool      `json:"is_donor"`
	IsFCCertified bool      `json:"is_fc_certified"`
	IsBoardMember bool      `json:"is_board_member"`
	Children      string    `json:"children,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Read-side fields filled by list/get queries.
	Company string   `json:"company,omitempty"` // primary company name
	Types   []string `json:"types,omitempty"`   // person type names
}

// Company is a company or donor organization.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Zip       string    `json:"zip,omitempty"`
	IsDonor   bool      `json:"is_donor"`
	CreatedAt time.Time `json:"created_at"`
}

// School is a school a person can be linked to.
type School struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Zip       string    `json:"zip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonType is a role/category label people are tagged with.
type PersonType struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// Donation must reference a person, a company, or both.
type Donation struct {
	ID        int64     `json:"id"`
	PersonID  *int64    `json:"person_id,omitempty"`
	CompanyID *int64    `json:"company_id,omitempty"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedView is a named snapshot of a list page's filter criteria.
type SavedView struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	EntityType  EntityType      `json:"entity_type"`
	FilterState json.RawMessage `json:"filter_state"`
	IsShared    bool            `json:"is_shared"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// VisibleTo reports whether userID may read the view.
func (v SavedView) VisibleTo(userID string) bool {
	return v.IsShared || v.UserID == userID
}

// Requester identifies the caller of an operation.
type Requester struct {
	UserID  string
	IsAdmin bool
}

// CanMutate reports whether r may update or delete v.
func (r Requester) CanMutate(v SavedView) bool {
	return r.IsAdmin || (r.UserID != "" && r.UserID == v.UserID)
}

// Filters are the list/export criteria shared by every entity list page.
// Keys that do not apply to an entity type are ignored.
type Filters struct {
	Search        string `json:"search,omitempty"`
	IsDonor       *bool  `json:"is_donor,omitempty"`
	IsFCCertified *bool  `json:"is_fc_certified,omitempty"`
	IsBoardMember *bool  `json:"is_board_member,omitempty"`
	TypeID        *int64 `json:"type,omitempty"`
	SchoolID      *int64 `json:"school_id,omitempty"`
	CompanyID     *int64 `json:"company_id,omitempty"`
}

// ImportResult is the aggregate outcome of one import run.
type ImportResult struct {
	Success    bool          `json:"success"`
	ImportID   string        `json:"import_id"`
	EntityType EntityType    `json:"entity_type"`
	Imported   int           `json:"imported"`
	Skipped    int           `json:"skipped"`
	Total      int           `json:"total"`
	Errors     []string      `json:"errors"`
	ErrorCount int           `json:"error_count"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImport          AuditAction = "import"
	ActionExport          AuditAction = "export"
	ActionEntityCreate    AuditAction = "entity_create"
	ActionEntityDelete    AuditAction = "entity_delete"
	ActionDonationSave    AuditAction = "donation_save"
	ActionSavedViewCreate AuditAction = "saved_view_create"
	ActionSavedViewUpdate AuditAction = "saved_view_update"
	ActionSavedViewDelete AuditAction = "saved_view_delete"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry is a single audit log record.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	EntityType   EntityType    `json:"entity_type,omitempty"`
	UserID       string        `json:"user_id,omitempty"`
	IPAddress    string        `json:"ip_address,omitempty"`
	UserAgent    string        `json:"user_agent,omitempty"`
	RowsAffected int           `json:"rows_affected,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ImportStore is the storage surface one import row needs.
// Implementations run every call inside the row's transaction.
type ImportStore interface {
	// LockNaturalKey serializes concurrent writers of the same natural key
	// until the surrounding transaction ends.
	LockNaturalKey(ctx context.Context, key string) error

	PersonExists(ctx context.Context, firstName, lastName string) (bool, error)
	CompanyExists(ctx context.Context, name string) (bool, error)
	SchoolExists(ctx context.Context, name string) (bool, error)

	// InsertPerson ignores the read-side Company and Types fields.
	InsertPerson(ctx context.Context, p Person) (int64, error)
	InsertCompany(ctx context.Context, c Company) (int64, error)
	InsertSchool(ctx context.Context, s School) (int64, error)

	GetOrCreateCompany(ctx context.Context, name string) (int64, error)
	GetOrCreatePersonType(ctx context.Context, name string) (int64, error)
	LinkPersonCompany(ctx context.Context, personID, companyID int64, primary bool) error
	AssignPersonType(ctx context.Context, personID, typeID int64) error
}

// Store is the full persistence surface used by Service.
type Store interface {
	ImportStore

	// InTx runs fn against a transactional view of the store.
	// fn's error rolls the transaction back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	LinkPersonSchool(ctx context.Context, personID, schoolID int64, primary bool) error

	ListPeople(ctx context.Context, f Filters) ([]Person, error)
	ListCompanies(ctx context.Context, f Filters) ([]Company, error)
	ListSchools(ctx context.Context, f Filters) ([]School, error)

	GetPerson(ctx context.Context, id int64) (Person, error)
	GetCompany(ctx context.Context, id int64) (Company, error)
	GetSchool(ctx context.Context, id int64) (School, error)
	DeleteEntity(ctx context.Context, et EntityType, id int64) error

	ListPersonTypes(ctx context.Context) ([]PersonType, error)
	CreatePersonType(ctx context.Context, name string) (PersonType, error)

	InsertDonation(ctx context.Context, d Donation) (int64, error)
	UpdateDonation(ctx context.Context, d Donation) error
	ListDonations(ctx context.Context, personID, companyID *int64) ([]Donation, error)
	MarkDonor(ctx context.Context, personID, companyID *int64) error

	CreateSavedView(ctx context.Context, v SavedView) (SavedView, error)
	GetSavedView(ctx context.Context, id int64) (SavedView, error)
	ListSavedViews(ctx context.Context, entityType EntityType, userID string) ([]SavedView, error)
	UpdateSavedView(ctx context.Context, v SavedView) (SavedView, error)
	DeleteSavedView(ctx context.Context, id int64) error

	InsertAudit(ctx context.Context, e AuditEntry) error
	// PruneAudit deletes up to limit audit entries created before cutoff.
	PruneAudit(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
