// Package course holds the paid course catalog.
package course

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/collegecompass/api/internal/upload"
)

var ErrNotFound = upload.ErrNotFound

type Lesson struct {
	Title    string `json:"title"`
	VideoURL string `json:"video_url,omitempty"`
	Duration string `json:"duration,omitempty"`
	Preview  bool   `json:"preview"`
}

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Course struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Instructor   string      `json:"instructor"`
	Category     string      `json:"category,omitempty"`
	PriceINR     int64       `json:"price_inr"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	Lessons      []Lesson    `json:"lessons"`
	Resources    []Resource  `json:"resources"`
	Enrolled     int         `json:"enrolled"`
	Likes        int         `json:"likes"`
	LikedBy      []uuid.UUID `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Free reports whether the course can be enrolled without payment.
func (c Course) Free() bool { return c.PriceINR == 0 }

// Input is the admin-facing course payload.
type Input struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Instructor   string     `json:"instructor"`
	Category     string     `json:"category"`
	PriceINR     int64      `json:"price_inr"`
	ThumbnailURL string     `json:"thumbnail_url"`
	Lessons      []Lesson   `json:"lessons"`
	Resources    []Resource `json:"resources"`
}

func (in *Input) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Instructor = strings.TrimSpace(in.Instructor)
	in.Category = strings.TrimSpace(in.Category)
	if in.Lessons == nil {
		in.Lessons = []Lesson{}
	}
	if in.Resources == nil {
		in.Resources = []Resource{}
	}
}

func (in Input) Validate() error {
	if in.Title == "" {
		return upload.NewValidationError("title", "title is required")
	}
	if in.Description == "" {
		return upload.NewValidationError("description", "description is required")
	}
	if in.Instructor == "" {
		return upload.NewValidationError("instructor", "instructor is required")
	}
	if in.PriceINR < 0 {
		return upload.NewValidationError("price_inr", "price cannot be negative")
	}
	return nil
}
