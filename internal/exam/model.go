// Package exam holds the government exam notice board: dates, eligibility
// and application links maintained by admins.
package exam

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/collegecompass/api/internal/upload"
)

var ErrNotFound = upload.ErrNotFound

type Exam struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category,omitempty"`
	Eligibility   string    `json:"eligibility,omitempty"`
	ApplyURL      string    `json:"apply_url,omitempty"`
	ExamDate      *string   `json:"exam_date,omitempty"`
	LastApplyDate *string   `json:"last_apply_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Input struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Eligibility   string  `json:"eligibility"`
	ApplyURL      string  `json:"apply_url"`
	ExamDate      *string `json:"exam_date"`
	LastApplyDate *string `json:"last_apply_date"`
}

func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Eligibility = strings.TrimSpace(in.Eligibility)
	in.ApplyURL = strings.TrimSpace(in.ApplyURL)
}

func (in Input) Validate() error {
	if in.Name == "" {
		return upload.NewValidationError("name", "name is required")
	}
	if in.Description == "" {
		return upload.NewValidationError("description", "description is required")
	}
	for field, value := range map[string]*string{
		"exam_date":       in.ExamDate,
		"last_apply_date": in.LastApplyDate,
	} {
		if value == nil || *value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", *value); err != nil {
			return upload.NewValidationError(field, "must be formatted YYYY-MM-DD")
		}
	}
	return nil
}
