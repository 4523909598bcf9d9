// Package store persists company notes, annual notes, company documents and
// period snapshots.
//
// [Mongo] is the production backend; [Memory] serves tests and runs without
// a database. Both implement [Store].
//
// # Collections
//
//   - notes: one document per company with the fields in [NoteFields]
//   - annual_notes: one document per year with theme and trend
//   - companies: free-form documents keyed by company_name
//   - snapshots: one document per year holding the ranked records
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	rberr "github.com/matzehuels/rankbars/pkg/errors"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// NoteFields lists the editable fields of a company note.
var NoteFields = []string{"industry", "business", "recent_issues", "user_memo"}

// Note is the set of free-text notes kept for one company.
type Note struct {
	Company      string     `json:"companyName" bson:"companyName"`
	Industry     string     `json:"industry" bson:"industry,omitempty"`
	Business     string     `json:"business" bson:"business,omitempty"`
	RecentIssues string     `json:"recent_issues" bson:"recent_issues,omitempty"`
	UserMemo     string     `json:"user_memo" bson:"user_memo,omitempty"`
	LastUpdated  *time.Time `json:"last_updated" bson:"last_updated,omitempty"`
}

// set assigns content to the note field named field.
func (n *Note) set(field, content string) {
	switch field {
	case "industry":
		n.Industry = content
	case "business":
		n.Business = content
	case "recent_issues":
		n.RecentIssues = content
	case "user_memo":
		n.UserMemo = content
	}
}

// Field returns the content of the note field named field.
func (n Note) Field(field string) string {
	switch field {
	case "industry":
		return n.Industry
	case "business":
		return n.Business
	case "recent_issues":
		return n.RecentIssues
	case "user_memo":
		return n.UserMemo
	}
	return ""
}

// AnnualNote is the summary kept for one year.
type AnnualNote struct {
	Year  string `json:"-" bson:"year"`
	Theme string `json:"theme" bson:"theme"`
	Trend string `json:"trend" bson:"trend"`
}

// AnnualNoteUpdate sets the non-nil fields of an annual note.
type AnnualNoteUpdate struct {
	Theme *string `json:"theme"`
	Trend *string `json:"trend"`
}

// Empty reports whether the update sets nothing.
func (u AnnualNoteUpdate) Empty() bool { return u.Theme == nil && u.Trend == nil }

// CompanyDoc is a free-form company document. The company_name field holds
// the key and cannot be modified.
type CompanyDoc map[string]any

// Reserved company document fields.
const (
	fieldID          = "_id"
	fieldCompanyName = "company_name"
	fieldUpdated     = "last_updated"
)

// NoteStore reads and edits company notes.
type NoteStore interface {
	// GetNote returns the note of company. A company without notes yields
	// an empty Note rather than an error.
	GetNote(ctx context.Context, company string) (Note, error)

	// SetNoteField writes one field, creating the note if needed.
	SetNoteField(ctx context.Context, company, field, content string) error

	// ClearNoteField empties one field.
	ClearNoteField(ctx context.Context, company, field string) error
}

// AnnualNoteStore reads and edits annual notes.
type AnnualNoteStore interface {
	// GetAnnualNote returns ErrNotFound when the year has no note.
	GetAnnualNote(ctx context.Context, year int) (AnnualNote, error)
	SetAnnualNote(ctx context.Context, year int, upd AnnualNoteUpdate) error
}

// CompanyStore reads and edits free-form company documents.
type CompanyStore interface {
	// GetCompany returns ErrNotFound for unknown companies.
	GetCompany(ctx context.Context, company string) (CompanyDoc, error)

	// SetCompanyField sets one field and reports whether the document was
	// created by this call.
	SetCompanyField(ctx context.Context, company, field string, value any) (CompanyDoc, bool, error)

	// UnsetCompanyField removes one field. Unknown companies yield ErrNotFound.
	UnsetCompanyField(ctx context.Context, company, field string) (CompanyDoc, error)
}

// SnapshotStore persists period snapshots.
type SnapshotStore interface {
	// LoadSnapshot returns ErrNotFound when the year was never saved.
	LoadSnapshot(ctx context.Context, year int) (snapshot.Snapshot, error)
	SaveSnapshot(ctx context.Context, year int, s snapshot.Snapshot) error
	SnapshotYears(ctx context.Context) ([]int, error)
}

// Store combines every collection.
type Store interface {
	NoteStore
	AnnualNoteStore
	CompanyStore
	SnapshotStore
	Close(ctx context.Context) error
}

// ValidateNoteField reports an INVALID_FIELD error for fields outside
// [NoteFields].
func ValidateNoteField(field string) error {
	return rberr.ValidateField(field, NoteFields)
}

// ValidateCompanyField rejects empty and reserved company document fields.
func ValidateCompanyField(field string) error {
	switch strings.TrimSpace(field) {
	case "":
		return rberr.New(rberr.ErrCodeInvalidField, "field is required and must be a non-empty string")
	case fieldID, fieldCompanyName:
		return rberr.New(rberr.ErrCodeInvalidField, "field %q cannot be modified", field)
	}
	return nil
}

func validateCompany(company string) error {
	return rberr.ValidateKey(company)
}
