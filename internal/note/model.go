// Package note holds study material records: an uploaded document plus the
// academic metadata used to browse it.
package note

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/collegecompass/api/internal/upload"
)

// Categories a note can belong to. The category decides which extra fields
// are required and which are dropped.
const (
	CategoryCollege        = "College"
	CategoryGovernmentExam = "Government Exam"
	CategoryOther          = "Other"
)

// ErrNotFound aliases the workflow sentinel so handlers match one error.
var ErrNotFound = upload.ErrNotFound

type Note struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Branch      string      `json:"branch,omitempty"`
	Year        string      `json:"year,omitempty"`
	Subject     string      `json:"subject,omitempty"`
	ExamName    string      `json:"exam_name,omitempty"`
	Tags        []string    `json:"tags"`
	Blob        upload.Blob `json:"file"`
	Downloads   int         `json:"downloads"`
	Likes       int         `json:"likes"`
	LikedBy     []uuid.UUID `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (n Note) BlobRef() upload.Blob { return n.Blob }

// Draft is the validated, normalized input for a note write.
type Draft struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Category    string
	Branch      string
	Year        string
	Subject     string
	ExamName    string
	Tags        []string
}

// NewDraft trims and normalizes the raw fields: extras that do not belong to
// the chosen category are cleared so a category change never carries stale
// metadata along.
func NewDraft(d Draft) Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	d.Branch = strings.TrimSpace(d.Branch)
	d.Year = strings.TrimSpace(d.Year)
	d.Subject = strings.TrimSpace(d.Subject)
	d.ExamName = strings.TrimSpace(d.ExamName)
	if d.Tags == nil {
		d.Tags = []string{}
	}

	switch d.Category {
	case CategoryCollege:
		d.ExamName = ""
	case CategoryGovernmentExam:
		d.Branch, d.Year = "", ""
	case CategoryOther:
		d.Branch, d.Year, d.Subject, d.ExamName = "", "", "", ""
	}
	return d
}

func (d Draft) Validate() error {
	if d.OwnerID == uuid.Nil {
		return upload.NewValidationError("owner", "owner is required")
	}
	if d.Title == "" {
		return upload.NewValidationError("title", "title is required")
	}
	if d.Description == "" {
		return upload.NewValidationError("description", "description is required")
	}
	switch d.Category {
	case CategoryCollege:
		if d.Branch == "" {
			return upload.NewValidationError("branch", "branch is required for college notes")
		}
		if d.Year == "" {
			return upload.NewValidationError("year", "year is required for college notes")
		}
		if d.Subject == "" {
			return upload.NewValidationError("subject", "subject is required for college notes")
		}
	case CategoryGovernmentExam:
		if d.Subject == "" {
			return upload.NewValidationError("subject", "subject is required for exam notes")
		}
		if d.ExamName == "" {
			return upload.NewValidationError("exam_name", "exam name is required for exam notes")
		}
	case CategoryOther:
	default:
		return upload.NewValidationError("category", "unknown category")
	}
	return nil
}

func (d Draft) DedupKey() (uuid.UUID, string) { return d.OwnerID, d.Title }
