package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/collegecompass/api/internal/upload"
)

// parseUploadForm parses the multipart body and extracts the optional file
// field. A request without the file field yields a nil file; create handlers
// decide whether that is acceptable.
func parseUploadForm(r *http.Request, maxBytes int64) (*upload.File, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, upload.NewValidationError("body", "invalid multipart form")
	}

	header, err := getFirstFile(r.MultipartForm, "file")
	if err != nil {
		return nil, nil
	}

	data, contentType, err := readMultipartFile(header, maxBytes)
	if err != nil {
		return nil, upload.NewValidationError("file", err.Error())
	}

	return &upload.File{
		Name:        header.Filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func getFirstFile(form *multipart.Form, field string) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, errors.New("missing file")
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, errors.New("missing file")
	}
	return files[0], nil
}

func readMultipartFile(header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(file, limit)); err != nil {
		return nil, "", fmt.Errorf("could not read file: %w", err)
	}

	if int64(buf.Len()) >= limit {
		return nil, "", fmt.Errorf("file exceeds %d bytes", limit)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return buf.Bytes(), contentType, nil
}
