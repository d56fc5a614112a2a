package zoom

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phyninja/zoom-recordings-backup/internal/config"
)

// CredentialStore persists the credential after every successful refresh so
// a rotated refresh token survives restarts.
type CredentialStore interface {
	Save(Credential) error
}

// FileStore keeps the credential in a YAML file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the YAML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the credential. A missing, empty, unparsable or incomplete
// file is a *config.ConfigError.
func (s *FileStore) Load() (Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credential{}, &config.ConfigError{Path: s.path, Err: config.ErrNotFound}
		}
		return Credential{}, &config.ConfigError{Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Credential{}, &config.ConfigError{Path: s.path, Err: config.ErrEmpty}
	}

	var cred Credential
	if err := yaml.Unmarshal(data, &cred); err != nil {
		return Credential{}, &config.ConfigError{Path: s.path, Err: fmt.Errorf("parse credentials: %w", err)}
	}

	var missing []string
	if strings.TrimSpace(cred.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(cred.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(cred.RefreshToken) == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return Credential{}, &config.ConfigError{
			Path: s.path,
			Err:  fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")),
		}
	}
	return cred, nil
}

// Save writes the credential atomically with mode 0600.
func (s *FileStore) Save(cred Credential) error {
	data, err := yaml.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	return writeFileAtomic(s.path, data, 0o600)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
