package invoice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ErrNumberTaken is returned by Store.Save when an invoice with the same
// number already exists. The existing artifact is left untouched.
var ErrNumberTaken = errors.New("invoice number already in use")

// Store persists rendered invoices and returns the path recorded on the order.
// Save never replaces an existing invoice.
type Store interface {
	Save(ctx context.Context, number string, pdf []byte) (string, error)
}

// LocalStore writes invoices to Dir as <number>.pdf. The returned path is
// PublicPrefix joined with the file name, which the router serves statically.
type LocalStore struct {
	Dir          string
	PublicPrefix string
}

func NewLocalStore(dir, publicPrefix string) *LocalStore {
	return &LocalStore{Dir: dir, PublicPrefix: publicPrefix}
}

func (s *LocalStore) Save(ctx context.Context, number string, pdf []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice dir: %w", err)
	}

	name := FileName(number)
	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create invoice file: %w", err)
	}
	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write invoice file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close invoice file: %w", err)
	}
	// a hard link fails if the name exists, unlike rename
	err = os.Link(tmp.Name(), filepath.Join(s.Dir, name))
	os.Remove(tmp.Name())
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrNumberTaken, number)
		}
		return "", fmt.Errorf("move invoice file: %w", err)
	}

	if s.PublicPrefix == "" {
		return filepath.Join(s.Dir, name), nil
	}
	return path.Join(s.PublicPrefix, name), nil
}
