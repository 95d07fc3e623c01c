// Package blog holds editorial posts with a cover image, view and like
// counters and embedded comments.
package blog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/collegecompass/api/internal/upload"
)

var ErrNotFound = upload.ErrNotFound

// publishDatePattern is intentionally strict: a bare calendar date, no time
// component, no timezone.
var publishDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Comment struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Blog struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary,omitempty"`
	Content     string      `json:"content"`
	Author      string      `json:"author"`
	Category    string      `json:"category,omitempty"`
	Tags        []string    `json:"tags"`
	PublishDate string      `json:"publish_date"`
	ReadTime    string      `json:"read_time"`
	Blob        upload.Blob `json:"cover"`
	Views       int         `json:"views"`
	Likes       int         `json:"likes"`
	LikedBy     []uuid.UUID `json:"-"`
	Comments    []Comment   `json:"comments"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (b Blog) BlobRef() upload.Blob { return b.Blob }

type Draft struct {
	OwnerID     uuid.UUID
	Title       string
	Summary     string
	Content     string
	Author      string
	Category    string
	Tags        []string
	PublishDate string
	ReadTime    string
}

func NewDraft(d Draft) Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Summary = strings.TrimSpace(d.Summary)
	d.Content = strings.TrimSpace(d.Content)
	d.Author = strings.TrimSpace(d.Author)
	d.Category = strings.TrimSpace(d.Category)
	d.PublishDate = strings.TrimSpace(d.PublishDate)
	d.ReadTime = readTime(d.Content)
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d
}

// readTime estimates at 200 words per minute, never under a minute.
func readTime(content string) string {
	words := len(strings.Fields(content))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

func (d Draft) Validate() error {
	if d.OwnerID == uuid.Nil {
		return upload.NewValidationError("owner", "owner is required")
	}
	if d.Title == "" {
		return upload.NewValidationError("title", "title is required")
	}
	if d.Content == "" {
		return upload.NewValidationError("content", "content is required")
	}
	if d.Author == "" {
		return upload.NewValidationError("author", "author is required")
	}
	if !publishDatePattern.MatchString(d.PublishDate) {
		return upload.NewValidationError("publish_date", "must be formatted YYYY-MM-DD")
	}
	if _, err := time.Parse("2006-01-02", d.PublishDate); err != nil {
		return upload.NewValidationError("publish_date", "not a valid calendar date")
	}
	return nil
}

func (d Draft) DedupKey() (uuid.UUID, string) { return d.OwnerID, d.Title }
