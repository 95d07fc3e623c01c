package upload

import (
	"path/filepath"
	"strings"

	"github.com/collegecompass/api/internal/storage"
)

// Rule binds a set of file extensions to a backend and a logical folder on
// that backend. Extensions include the leading dot and match case-insensitive.
type Rule struct {
	Extensions []string
	Store      storage.BlobStore
	Folder     string
}

// Router resolves which backend and folder receive a file, by extension.
// Rules are checked in order and the first match wins; files that match no
// rule go to the fallback.
type Router struct {
	rules    []Rule
	fallback Rule
}

func NewRouter(rules []Rule, fallback Rule) *Router {
	return &Router{rules: rules, fallback: fallback}
}

// Route picks the destination for the given file name.
func (r *Router) Route(name string) (storage.BlobStore, string) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, rule := range r.rules {
		for _, candidate := range rule.Extensions {
			if ext == candidate {
				return rule.Store, rule.Folder
			}
		}
	}
	return r.fallback.Store, r.fallback.Folder
}

// DefaultRules wires the standard document and image routing: PDFs, slide
// decks and text documents go to the drive backend in their own folders,
// images go to the image store, and anything else lands with the PDFs.
func DefaultRules(drive, images storage.BlobStore) (rules []Rule, fallback Rule) {
	rules = []Rule{
		{Extensions: []string{".pdf"}, Store: drive, Folder: storage.DriveFolderNotes},
		{Extensions: []string{".ppt", ".pptx"}, Store: drive, Folder: storage.DriveFolderPPT},
		{Extensions: []string{".doc", ".docx", ".txt"}, Store: drive, Folder: storage.DriveFolderDocs},
		{Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}, Store: images, Folder: "thumbnails"},
	}
	fallback = Rule{Store: drive, Folder: storage.DriveFolderNotes}
	return rules, fallback
}
