// internal/policy/storage.go
package policy

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/models"
)

// Storage keeps policy PDFs in a local directory.
type Storage struct {
	dir    string
	logger logger.Logger
}

func NewStorage(dir string, log logger.Logger) *Storage {
	return &Storage{dir: dir, logger: logger.Component(log, "policy-storage")}
}

func (s *Storage) Dir() string {
	return s.dir
}

// Save writes r under the base name of filename, replacing any file of the
// same name. Only .pdf names are accepted.
func (s *Storage) Save(filename string, r io.Reader) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if !isPDFName(name) {
		return "", apperrors.NewValidationError(apperrors.ErrCodeUnsupportedExtension,
			"Only PDF files are allowed", fmt.Sprintf("received: %s", filename), "")
	}
	if err := validName(name); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create policy dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("Failed to save file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("Failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("Failed to save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("Failed to save file: %w", err)
	}

	s.logger.Info("policy document saved", map[string]interface{}{"file": name})
	return name, nil
}

// List returns the PDFs in the directory sorted by name. A missing directory
// is an empty list.
func (s *Storage) List() ([]models.PolicyFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.PolicyFile{}, nil
		}
		return nil, fmt.Errorf("list policy dir: %w", err)
	}

	files := make([]models.PolicyFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isPDFName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, models.PolicyFile{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Storage) Read(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}

func (s *Storage) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewResourceNotFoundError("File", name)
	}
	if err != nil {
		return fmt.Errorf("delete policy file: %w", err)
	}
	s.logger.Info("policy document deleted", map[string]interface{}{"file": name})
	return nil
}

func validName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return apperrors.NewValidationError(apperrors.ErrCodeInvalidInput, "Invalid filename", name, "")
	}
	return nil
}

func isPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
