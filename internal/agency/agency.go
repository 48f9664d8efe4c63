// Package agency stores participating organizations, their program enrollment,
// uploaded document metadata and the user assignments that link staff to them.
package agency

import (
	"context"
	"errors"
	"time"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/program"
)

// StatusPending is the agency-status lookup id given to newly registered agencies.
const StatusPending int64 = 1

var (
	ErrNotFound     = errors.New("agency: not found")
	ErrInvalidInput = errors.New("agency: invalid input")
)

type Agency struct {
	ID                     int64      `json:"id" db:"id"`
	Name                   string     `json:"name" db:"name" validate:"required,max=200"`
	StatusID               int64      `json:"status_id" db:"status_id"`
	StatusName             string     `json:"status_name" db:"status_name"`
	TaxID                  string     `json:"tax_id" db:"tax_id" validate:"max=50"`
	RegistrationNumber     string     `json:"registration_number" db:"registration_number" validate:"max=50"`
	Address                string     `json:"address" db:"address"`
	CityID                 int64      `json:"city_id" db:"city_id"`
	RegionID               int64      `json:"region_id" db:"region_id"`
	ZipCode                string     `json:"zip_code" db:"zip_code" validate:"max=10"`
	PostalAddress          string     `json:"postal_address" db:"postal_address"`
	PostalCityID           *int64     `json:"postal_city_id,omitempty" db:"postal_city_id"`
	PostalRegionID         *int64     `json:"postal_region_id,omitempty" db:"postal_region_id"`
	PostalZipCode          string     `json:"postal_zip_code" db:"postal_zip_code" validate:"max=10"`
	Latitude               *float64   `json:"latitude,omitempty" db:"latitude" validate:"omitempty,latitude"`
	Longitude              *float64   `json:"longitude,omitempty" db:"longitude" validate:"omitempty,longitude"`
	Phone                  string     `json:"phone" db:"phone"`
	Email                  string     `json:"email" db:"email" validate:"omitempty,email"`
	LogoURL                string     `json:"logo_url" db:"logo_url"`
	NonProfit              bool       `json:"non_profit" db:"non_profit"`
	FederalFundsDenied     bool       `json:"federal_funds_denied" db:"federal_funds_denied"`
	StateFundsDenied       bool       `json:"state_funds_denied" db:"state_funds_denied"`
	OrganizedOperated      bool       `json:"organized_operated" db:"organized_operated"`
	RejectionJustification string     `json:"rejection_justification" db:"rejection_justification"`
	IsActive               bool       `json:"is_active" db:"is_active"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	Programs []program.Program `json:"programs" db:"-"`
	Users    []UserAssignment  `json:"users" db:"-"`
	// ProgramIDs is the enrollment requested on insert/update.
	ProgramIDs []int64 `json:"program_ids,omitempty" db:"-"`
}

// Filter narrows agency listings. Zero ids and an empty UserID disable that filter.
type Filter struct {
	paging.Query
	RegionID int64
	CityID   int64
	StatusID int64
	UserID   string
}

type Repository interface {
	// GetByID returns the agency with its programs and assigned users.
	GetByID(ctx context.Context, id int64) (Agency, error)
	GetAll(ctx context.Context, f Filter) (paging.Page[Agency], error)
	Insert(ctx context.Context, a Agency) (int64, error)
	// Update rewrites the record and replaces its program set with a.ProgramIDs.
	Update(ctx context.Context, a Agency) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UpdateStatus(ctx context.Context, id, statusID int64, rejectionJustification string) (bool, error)
	UpdateLogo(ctx context.Context, id int64, logoURL string) (bool, error)
	InsertProgram(ctx context.Context, agencyID, programID int64) (int64, error)
}

// UserAssignment links a user to an agency. It is the only user -> agency relation.
type UserAssignment struct {
	ID         int64      `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	AgencyID   int64      `json:"agency_id" db:"agency_id"`
	AgencyName string     `json:"agency_name" db:"agency_name"`
	IsOwner    bool       `json:"is_owner" db:"is_owner"`
	IsMonitor  bool       `json:"is_monitor" db:"is_monitor"`
	AssignedBy string     `json:"assigned_by" db:"assigned_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	paging.Query
	AgencyID int64
}

// AssignmentRepository is the lower-level read/write service both the account
// workflow and the agency handlers use to resolve "the agency of a user".
type AssignmentRepository interface {
	Insert(ctx context.Context, a UserAssignment) (int64, error)
	// ByUser returns the user's assignment, owner assignments first. ErrNotFound if none.
	ByUser(ctx context.Context, userID string) (UserAssignment, error)
	ByAgency(ctx context.Context, agencyID int64) ([]UserAssignment, error)
	GetAll(ctx context.Context, f AssignmentFilter) (paging.Page[UserAssignment], error)
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (bool, error)
}

// File is the metadata of a document uploaded for an agency.
type File struct {
	ID          int64     `json:"id" db:"id"`
	AgencyID    int64     `json:"agency_id" db:"agency_id" validate:"required,gt=0"`
	Name        string    `json:"name" db:"name" validate:"required,max=200"`
	Description string    `json:"description" db:"description"`
	FileName    string    `json:"file_name" db:"file_name" validate:"required,max=255"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes" validate:"gte=0"`
	URL         string    `json:"url" db:"-"`
	UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// FileFilter narrows file listings to one agency when AgencyID > 0.
type FileFilter struct {
	paging.Query
	AgencyID int64
}

type FileRepository interface {
	GetByID(ctx context.Context, id int64) (File, error)
	GetAll(ctx context.Context, f FileFilter) (paging.Page[File], error)
	Insert(ctx context.Context, f File) (int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
