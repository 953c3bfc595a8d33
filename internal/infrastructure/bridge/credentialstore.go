package bridge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/replygate/replygate/internal/domain/session"
)

// FileCredentialStore keeps a marker file per tenant recording that the
// bridge holds working credentials. The blob itself lives bridge-side;
// the core only needs presence for reconnect decisions and clearing on
// terminal failures.
type FileCredentialStore struct {
	dir string
}

func NewFileCredentialStore(dir string) (*FileCredentialStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential dir: %w", err)
	}
	return &FileCredentialStore{dir: dir}, nil
}

func (s *FileCredentialStore) Exists(tenantSID string) bool {
	_, err := os.Stat(s.path(tenantSID))
	return err == nil
}

// Touch records that credentials exist for the tenant.
func (s *FileCredentialStore) Touch(tenantSID string) error {
	f, err := os.OpenFile(s.path(tenantSID), os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write credential marker: %w", err)
	}
	return f.Close()
}

func (s *FileCredentialStore) Clear(tenantSID string) error {
	if err := os.Remove(s.path(tenantSID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear credential marker: %w", err)
	}
	return nil
}

func (s *FileCredentialStore) path(tenantSID string) string {
	return filepath.Join(s.dir, tenantSID+".cred")
}

var _ session.CredentialStore = (*FileCredentialStore)(nil)
