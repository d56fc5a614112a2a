package drive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), 0, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_CreateFolder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/files", r.URL.Path)

		var body drive.File
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Weekly Sync 2024-01-20 at 15-04", body.Name)
		assert.Equal(t, FolderMimeType, body.MimeType)
		assert.Equal(t, []string{"root-id"}, body.Parents)

		writeJSON(w, map[string]any{"id": "folder-1", "name": body.Name, "mimeType": FolderMimeType, "parents": body.Parents})
	})

	info, err := client.CreateFolder(context.Background(), "Weekly Sync 2024-01-20 at 15-04", []string{"root-id"})
	require.NoError(t, err)
	assert.Equal(t, "folder-1", info.ID)
	assert.True(t, info.IsFolder())
}

func TestClient_CreateFolder_RequiresName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	_, err := client.CreateFolder(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestClient_EnsureFolder(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			q := r.URL.Query().Get("q")
			assert.Contains(t, q, `name = 'Bob\'s Sync'`)
			assert.Contains(t, q, `'root-id' in parents`)
			writeJSON(w, map[string]any{"files": []map[string]any{{"id": "found", "mimeType": FolderMimeType}}})
		})

		info, err := client.EnsureFolder(context.Background(), "Bob's Sync", "root-id")
		require.NoError(t, err)
		assert.Equal(t, "found", info.ID)
	})

	t.Run("created", func(t *testing.T) {
		var created bool
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				writeJSON(w, map[string]any{"files": []any{}})
				return
			}
			created = true
			writeJSON(w, map[string]any{"id": "new", "mimeType": FolderMimeType})
		})

		info, err := client.EnsureFolder(context.Background(), "Retro", "root-id")
		require.NoError(t, err)
		assert.Equal(t, "new", info.ID)
		assert.True(t, created)
	})
}

func TestClient_UploadFile(t *testing.T) {
	content := strings.Repeat("recording", 100)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/drive/v3/files", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), content)
		assert.Contains(t, string(body), "shared_screen_duration_30_minutes.mp4")
		writeJSON(w, map[string]any{"id": "uploaded-1"})
	})

	path := filepath.Join(t.TempDir(), "shared_screen_duration_30_minutes.mp4")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	id, err := client.UploadFile(context.Background(), path, "folder-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "uploaded-1", id)
}

func TestClient_UploadFile_MissingFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	_, err := client.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "folder-1", nil)
	assert.Error(t, err)
}

func TestClient_StorageQuota(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/about", r.URL.Path)
		writeJSON(w, map[string]any{"storageQuota": map[string]any{
			"limit":             "16106127360",
			"usage":             "6106127360",
			"usageInDrive":      "5000000000",
			"usageInDriveTrash": "1000",
		}})
	})

	quota, err := client.StorageQuota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(16106127360), quota.Limit)
	assert.Equal(t, int64(10000000000), quota.Available())
}

func TestQuota_Available(t *testing.T) {
	assert.Equal(t, int64(-1), Quota{Usage: 10}.Available())
	assert.Equal(t, int64(0), Quota{Limit: 10, Usage: 12}.Available())
}

func TestConvertToFileInfo(t *testing.T) {
	info := convertToFileInfo(&drive.File{
		Id:          "file123",
		Name:        "audio_only_duration_5_minutes.m4a",
		MimeType:    "audio/mp4",
		Size:        1024,
		CreatedTime: "2024-01-01T10:00:00Z",
		Parents:     []string{"parent1"},
	})

	assert.Equal(t, "file123", info.ID)
	assert.Equal(t, int64(1024), info.Size)
	assert.Equal(t, 2024, info.CreatedTime.Year())
	assert.False(t, info.IsFolder())
	assert.Equal(t, []string{"parent1"}, info.Parents)
}
