package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/cpboard/internal/domain/model"
)

const cohortFileExt = ".json"

// cohortDocument is the on-disk shape of one cohort.
type cohortDocument struct {
	Cohort   string                `json:"cohort"`
	Students []model.StudentRecord `json:"students"`
}

// FileStore is a TreapStore that persists every cohort as one JSON document
// under dir. Writes go to a temporary file that is renamed into place.
type FileStore struct {
	*TreapStore
	dir string
}

// NewFileStore opens dir, creating it when absent, and loads every cohort
// document found there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	fs := &FileStore{dir: dir}
	fs.TreapStore = NewTreapStore(withWriteHook(fs.persist))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != cohortFileExt {
			continue
		}
		doc, err := readDocument(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if doc.Cohort == "" {
			doc.Cohort = strings.TrimSuffix(e.Name(), cohortFileExt)
		}
		fs.load(doc.Cohort, doc.Students)
	}
	return fs, nil
}

func readDocument(path string) (cohortDocument, error) {
	var doc cohortDocument
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

func (fs *FileStore) path(cohort string) string {
	return filepath.Join(fs.dir, sanitizeCohort(cohort)+cohortFileExt)
}

func (fs *FileStore) persist(_ context.Context, cohort string, records []model.StudentRecord) error {
	for i := range records {
		records[i].Rank = 0
	}
	raw, err := json.MarshalIndent(cohortDocument{Cohort: cohort, Students: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cohort %s: %w", cohort, err)
	}

	tmp, err := os.CreateTemp(fs.dir, ".cohort-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error wins
		return fmt.Errorf("write cohort %s: %w", cohort, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cohort %s: %w", cohort, err)
	}
	if err := os.Rename(tmp.Name(), fs.path(cohort)); err != nil {
		return fmt.Errorf("publish cohort %s: %w", cohort, err)
	}
	return nil
}

// sanitizeCohort maps a cohort name onto a safe file name.
func sanitizeCohort(cohort string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, cohort)
}
