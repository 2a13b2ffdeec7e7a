package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apetrenko/filevault/internal/common"
)

// DiskStore keeps blobs as plain files under a root directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed and returns a store
// rooted there.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

// resolve maps a storage key to a path under root, rejecting traversal.
func (s *DiskStore) resolve(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return p, nil
}

func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o770); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write %s: %w", p, err)
	}
	return f.Close()
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

func (s *DiskStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("stat %s: %w", s.root, err)
	}
	return nil
}
