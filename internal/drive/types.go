package drive

import "time"

// FileInfo represents metadata about a file or folder in Google Drive
type FileInfo struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Name is the name of the file
	Name string `json:"name"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mimeType"`

	// Size is the size of the file in bytes (not populated for folders)
	Size int64 `json:"size,omitempty"`

	// CreatedTime is when the file was created
	CreatedTime time.Time `json:"createdTime"`

	// WebViewLink is a link for opening the file in the Drive viewer
	WebViewLink string `json:"webViewLink,omitempty"`

	// Parents are the IDs of the parent folders
	Parents []string `json:"parents,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (f *FileInfo) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// Quota is the storage quota of the authorized account. Limit is zero for
// accounts with unlimited storage.
type Quota struct {
	Limit             int64 `json:"limit"`
	Usage             int64 `json:"usage"`
	UsageInDrive      int64 `json:"usageInDrive"`
	UsageInDriveTrash int64 `json:"usageInDriveTrash"`
}

// Available returns the remaining bytes, or -1 when storage is unlimited.
func (q Quota) Available() int64 {
	if q.Limit <= 0 {
		return -1
	}
	if q.Usage >= q.Limit {
		return 0
	}
	return q.Limit - q.Usage
}
