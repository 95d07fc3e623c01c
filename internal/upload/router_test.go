package upload

import (
	"reflect"
	"testing"

	"github.com/collegecompass/api/internal/storage"
)

func TestRouterRoutesByExtension(t *testing.T) {
	drive := &fakeStore{}
	images := &fakeStore{}
	rules, fallback := DefaultRules(drive, images)
	router := NewRouter(rules, fallback)

	cases := []struct {
		name   string
		store  storage.BlobStore
		folder string
	}{
		{"algebra.pdf", drive, storage.DriveFolderNotes},
		{"slides.PPT", drive, storage.DriveFolderPPT},
		{"slides.pptx", drive, storage.DriveFolderPPT},
		{"summary.docx", drive, storage.DriveFolderDocs},
		{"readme.txt", drive, storage.DriveFolderDocs},
		{"cover.JPG", images, "thumbnails"},
		{"cover.webp", images, "thumbnails"},
		{"archive.zip", drive, storage.DriveFolderNotes},
		{"no-extension", drive, storage.DriveFolderNotes},
	}
	for _, tc := range cases {
		store, folder := router.Route(tc.name)
		if store != tc.store {
			t.Errorf("%s: routed to the wrong backend", tc.name)
		}
		if folder != tc.folder {
			t.Errorf("%s: folder = %q, want %q", tc.name, folder, tc.folder)
		}
	}
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		name   string
		values []string
		want   []string
		fail   bool
	}{
		{"json array", []string{`["math","algebra"]`}, []string{"math", "algebra"}, false},
		{"native values", []string{"math", "algebra"}, []string{"math", "algebra"}, false},
		{"single plain value", []string{"math"}, []string{"math"}, false},
		{"empty", nil, []string{}, false},
		{"blank entries trimmed", []string{" math ", ""}, []string{"math"}, false},
		{"malformed json", []string{`["math"`}, nil, true},
		{"json non-strings", []string{`[1,2]`}, nil, true},
	}
	for _, tc := range cases {
		got, err := ParseTags(tc.values)
		if tc.fail {
			if err == nil {
				t.Errorf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
