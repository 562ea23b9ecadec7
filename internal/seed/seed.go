// Package seed loads pack catalogs from YAML and publishes them to the store.
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"pack-portal/internal/model"
)

type catalogFile struct {
	Packs []model.Pack `yaml:"packs"`
}

type packUpserter interface {
	Upsert(ctx context.Context, pack model.Pack) error
}

// Decode reads and validates a catalog. Unknown keys are rejected.
func Decode(r io.Reader) ([]model.Pack, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var file catalogFile
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Packs))
	for i := range file.Packs {
		pack := &file.Packs[i]
		pack.ID = strings.TrimSpace(pack.ID)
		pack.Title = strings.TrimSpace(pack.Title)
		pack.FileURL = strings.TrimSpace(pack.FileURL)

		if pack.ID == "" || pack.Title == "" || pack.FileURL == "" {
			return nil, fmt.Errorf("pack %d: id, title and file_url are required", i+1)
		}
		if pack.FileSize < 0 {
			return nil, fmt.Errorf("pack %q: file_size cannot be negative", pack.ID)
		}
		if _, dup := seen[pack.ID]; dup {
			return nil, fmt.Errorf("pack %q is listed twice", pack.ID)
		}
		seen[pack.ID] = struct{}{}
	}

	return file.Packs, nil
}

// Apply upserts every pack and stops at the first failure.
func Apply(ctx context.Context, store packUpserter, packs []model.Pack) (int, error) {
	for i, pack := range packs {
		if err := store.Upsert(ctx, pack); err != nil {
			return i, err
		}
	}

	return len(packs), nil
}
