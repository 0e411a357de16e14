// Package catalog seeds the permission catalog from an embedded document.
// The catalog is managed administratively; the running service only reads it,
// so seeding upserts by name and never deletes rows.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"

	_ "embed"
)

//go:embed catalog.json
var catalogJSON []byte

//go:embed schema.json
var schemaJSON []byte

type document struct {
	Permissions []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
	} `json:"permissions"`
}

// Load validates the embedded catalog against its schema and decodes it.
func Load() ([]domain.Permission, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add catalog schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	var raw any
	if err := json.Unmarshal(catalogJSON, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	var doc document
	if err := json.Unmarshal(catalogJSON, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	permissions := make([]domain.Permission, 0, len(doc.Permissions))
	for _, p := range doc.Permissions {
		permissions = append(permissions, domain.Permission{
			ID:          uuid.NewString(),
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Active:      true,
		})
	}
	return permissions, nil
}

// Seed upserts the embedded catalog in one transaction. Existing rows keep
// their ids; description, category and active flag are refreshed.
func Seed(ctx context.Context, tx ports.Transactor) error {
	permissions, err := Load()
	if err != nil {
		return err
	}
	return tx.InTx(ctx, func(s ports.Store) error {
		for _, p := range permissions {
			if err := s.Catalog().Upsert(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}
