package drive

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"

	// DefaultChunkSize is the resumable upload chunk size.
	DefaultChunkSize = 8 << 20

	fileFields = "id, name, mimeType, size, createdTime, webViewLink, parents"
)

// Client wraps the Google Drive API service
type Client struct {
	service   *drive.Service
	chunkSize int
}

// NewClient creates a Drive client that authenticates through httpClient.
// chunkSize sets the resumable upload chunk size; values <= 0 use
// DefaultChunkSize.
func NewClient(ctx context.Context, httpClient *http.Client, chunkSize int, opts ...option.ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		service:   driveService,
		chunkSize: chunkSize,
	}, nil
}

// CreateFolder creates a new folder in Google Drive
func (c *Client) CreateFolder(ctx context.Context, name string, parentFolders []string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}

	if len(parentFolders) > 0 {
		file.Parents = parentFolders
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Fields(fileFields).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return convertToFileInfo(driveFile), nil
}

// FindFolder returns the first non-trashed folder called name directly
// under parentID, or nil when there is none.
func (c *Client) FindFolder(ctx context.Context, name, parentID string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), FolderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	list, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		PageSize(1).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search folder: %w", err)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return convertToFileInfo(list.Files[0]), nil
}

// EnsureFolder returns the folder called name under parentID, creating it
// when it does not exist, so repeated runs do not produce duplicates.
func (c *Client) EnsureFolder(ctx context.Context, name, parentID string) (*FileInfo, error) {
	existing, err := c.FindFolder(ctx, name, parentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	var parents []string
	if parentID != "" {
		parents = []string{parentID}
	}
	return c.CreateFolder(ctx, name, parents)
}

// UploadFile uploads the file at path into folderID using chunked resumable
// media upload and returns the new file id. progress, when set, receives
// the bytes sent so far and the total size.
func (c *Client) UploadFile(ctx context.Context, path, folderID string, progress func(current, total int64)) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file := &drive.File{
		Name: filepath.Base(path),
	}
	if folderID != "" {
		file.Parents = []string{folderID}
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	call := c.service.Files.Create(file).
		Context(ctx).
		Media(f, googleapi.ChunkSize(c.chunkSize), googleapi.ContentType(contentType)).
		Fields("id")
	if progress != nil {
		call = call.ProgressUpdater(func(current, total int64) {
			progress(current, total)
		})
	}

	driveFile, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return driveFile.Id, nil
}

// StorageQuota returns the account storage quota.
func (c *Client) StorageQuota(ctx context.Context) (Quota, error) {
	about, err := c.service.About.Get().
		Context(ctx).
		Fields("storageQuota").
		Do()
	if err != nil {
		return Quota{}, fmt.Errorf("failed to get storage quota: %w", err)
	}
	if about.StorageQuota == nil {
		return Quota{}, nil
	}
	return Quota{
		Limit:             about.StorageQuota.Limit,
		Usage:             about.StorageQuota.Usage,
		UsageInDrive:      about.StorageQuota.UsageInDrive,
		UsageInDriveTrash: about.StorageQuota.UsageInDriveTrash,
	}, nil
}

// escapeQuery escapes a value for use inside a single-quoted Drive query
// string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// convertToFileInfo converts a Drive API File to our FileInfo type
func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			fileInfo.CreatedTime = t
		}
	}

	return fileInfo
}
