package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Drive folder names used for document uploads.
const (
	DriveFolderNotes = "Notes"
	DriveFolderPPT   = "PPT"
	DriveFolderDocs  = "Docs"
)

// DriveConfig holds credentials for the cloud-drive account.
type DriveConfig struct {
	APIBase    string
	Email      string
	Password   string
	HTTPClient *http.Client
}

// DriveStore implements BlobStore over a personal cloud-drive HTTP API.
//
// The session has an explicit lifecycle: Connect logs in and resolves (or
// creates) the upload folders; until that succeeds every Put/Delete fails
// fast with ErrUnavailable.
type DriveStore struct {
	cfg    DriveConfig
	client *http.Client

	mu      sync.RWMutex
	token   string
	folders map[string]string // folder name -> remote folder id
	ready   bool
}

// NewDriveStore validates credentials and builds an unconnected store.
func NewDriveStore(cfg DriveConfig) (*DriveStore, error) {
	if strings.TrimSpace(cfg.APIBase) == "" {
		return nil, errors.New("storage: drive api base missing")
	}
	if strings.TrimSpace(cfg.Email) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("storage: drive credentials missing")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &DriveStore{
		cfg:     DriveConfig{APIBase: strings.TrimRight(cfg.APIBase, "/"), Email: cfg.Email, Password: cfg.Password},
		client:  client,
		folders: make(map[string]string),
	}, nil
}

// Connect authenticates and resolves the upload folders.
func (d *DriveStore) Connect(ctx context.Context) error {
	token, err := d.login(ctx)
	if err != nil {
		return fmt.Errorf("storage: drive login: %w", err)
	}

	folders := make(map[string]string, 3)
	for _, name := range []string{DriveFolderNotes, DriveFolderPPT, DriveFolderDocs} {
		id, err := d.findOrCreateFolder(ctx, token, name)
		if err != nil {
			return fmt.Errorf("storage: drive folder %s: %w", name, err)
		}
		folders[name] = id
	}

	d.mu.Lock()
	d.token = token
	d.folders = folders
	d.ready = true
	d.mu.Unlock()

	return nil
}

// Ready reports whether the session reached its usable state.
func (d *DriveStore) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

func (d *DriveStore) session() (token string, folders map[string]string, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return "", nil, ErrUnavailable
	}
	return d.token, d.folders, nil
}

// Put uploads into the folder named by input.Folder and returns the node id
// plus a share link generated right after the upload completes.
func (d *DriveStore) Put(ctx context.Context, input PutInput) (*PutResult, error) {
	token, folders, err := d.session()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("storage: file name required")
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: empty body")
	}

	folderID, ok := folders[input.Folder]
	if !ok {
		folderID, ok = folders[DriveFolderNotes]
		if !ok {
			return nil, ErrUnavailable
		}
	}

	endpoint := fmt.Sprintf("%s/folders/%s/files?name=%s", d.cfg.APIBase, folderID, url.QueryEscape(input.Name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(input.Body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(input.Body))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("storage: drive upload failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.ID == "" || payload.Link == "" {
		return nil, errors.New("storage: drive upload returned incomplete node")
	}

	return &PutResult{ExternalID: payload.ID, URL: payload.Link}, nil
}

// Delete removes a node by id. A node that is already gone counts as deleted.
func (d *DriveStore) Delete(ctx context.Context, externalID string) error {
	token, _, err := d.session()
	if err != nil {
		return err
	}

	id := strings.TrimSpace(externalID)
	if id == "" {
		return errors.New("storage: node id required")
	}

	endpoint := fmt.Sprintf("%s/files/%s", d.cfg.APIBase, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("storage: drive delete failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

func (d *DriveStore) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    d.cfg.Email,
		"password": d.cfg.Password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.APIBase+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errors.New("empty session token")
	}
	return payload.Token, nil
}

func (d *DriveStore) findOrCreateFolder(ctx context.Context, token, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/folders?name=%s", d.cfg.APIBase, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var payload struct {
			Folders []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"folders"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", err
		}
		for _, folder := range payload.Folders {
			if folder.Name == name {
				return folder.ID, nil
			}
		}
	} else if resp.StatusCode != http.StatusNotFound {
		return "", fmt.Errorf("list folders: status %d", resp.StatusCode)
	}

	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	createReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.APIBase+"/folders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	createReq.Header.Set("Authorization", "Bearer "+token)
	createReq.Header.Set("Content-Type", "application/json")

	createResp, err := d.client.Do(createReq)
	if err != nil {
		return "", err
	}
	defer createResp.Body.Close()

	if createResp.StatusCode < 200 || createResp.StatusCode >= 300 {
		return "", fmt.Errorf("create folder: status %d", createResp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(createResp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.New("create folder: empty id")
	}
	return created.ID, nil
}
