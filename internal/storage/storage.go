package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrFileTooLarge rejects uploads above the configured size cap before
// anything is written to disk.
var ErrFileTooLarge = errors.New("uploaded file is too large")

// Storage persists uploaded submission files under a per-challenge
// directory. Stored names carry a uuid so concurrent uploads of the same
// file name never collide.
type Storage struct {
	root    string
	maxSize int64
}

// New creates the upload root. maxUploadSize is a human-readable size
// ("10MB", "512KiB"); empty means unlimited.
func New(root, maxUploadSize string) (*Storage, error) {
	maxSize := int64(0)
	if maxUploadSize != "" {
		var err error
		maxSize, err = units.FromHumanSize(maxUploadSize)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid max upload size %q", maxUploadSize)
		}
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create upload root")
	}

	return &Storage{root: root, maxSize: maxSize}, nil
}

func (s *Storage) Save(challengeID, userID uint, fileName string, data []byte) (string, error) {
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", errors.Wrapf(ErrFileTooLarge, "%d bytes, limit %d", len(data), s.maxSize)
	}

	dir := filepath.Join(s.root, fmt.Sprint(challengeID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create challenge upload dir")
	}

	name := fmt.Sprintf("%d_%s_%s", userID, uuid.New().String(), sanitizeName(fileName))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write submission file")
	}
	return path, nil
}

// sanitizeName strips any directory components from a client-provided
// file name.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == string(filepath.Separator) {
		return "upload"
	}
	return name
}

// IsAnswerFile reports whether a dataset file name marks the hidden
// ground-truth file. Such files must never be served to participants.
func IsAnswerFile(name string) bool {
	return strings.Contains(strings.ToLower(name), "answer")
}
