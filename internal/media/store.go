package media

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	receiptsDir = "receipts"
	tmpDir      = "tmp"
)

// Store keeps receipt images under a root directory of an afero filesystem.
// Keys returned by SaveReceipt are relative to the root.
type Store struct {
	fs   afero.Fs
	root string
}

func NewStore(fs afero.Fs, root string) (*Store, error) {
	for _, dir := range []string{receiptsDir, tmpDir} {
		if err := fs.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", dir, err)
		}
	}
	return &Store{fs: fs, root: root}, nil
}

// NewOsStore is a Store on the local disk.
func NewOsStore(root string) (*Store, error) {
	return NewStore(afero.NewOsFs(), root)
}

// Spool copies r into a temporary file and returns its path. The caller owns
// the file and must Remove it.
func (s *Store) Spool(r io.Reader, ext string) (string, error) {
	f, err := afero.TempFile(s.fs, filepath.Join(s.root, tmpDir), "upload-*"+cleanExt(ext))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = s.fs.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return f.Name(), nil
}

func (s *Store) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, name)
}

// Remove deletes a spooled file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	if err := s.fs.Remove(name); err != nil {
		if exists, _ := afero.Exists(s.fs, name); !exists {
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) Exists(name string) (bool, error) {
	return afero.Exists(s.fs, name)
}

// SaveReceipt persists data under a generated key such as receipts/<uuid>.png.
func (s *Store) SaveReceipt(data []byte, ext string) (string, error) {
	key := path.Join(receiptsDir, uuid.NewString()+cleanExt(ext))
	if err := afero.WriteFile(s.fs, s.Path(key), data, 0o644); err != nil {
		return "", fmt.Errorf("save receipt: %w", err)
	}
	return key, nil
}

// DeleteReceipt removes a key written by SaveReceipt.
func (s *Store) DeleteReceipt(key string) error {
	return s.Remove(s.Path(key))
}

// Path resolves a key to its location on the filesystem.
func (s *Store) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func cleanExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".jpg"
		}
	}
	return ext
}
