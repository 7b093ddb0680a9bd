package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/slotshare/internal/model"
)

type CatalogStore struct {
	db DBTX
}

func NewCatalogStore(db DBTX) *CatalogStore {
	return &CatalogStore{db: db}
}

func scanCatalogService(sc scanner) (*model.CatalogService, error) {
	var c model.CatalogService
	var logoURL, description sql.NullString
	var active int

	err := sc.Scan(&c.ID, &c.Name, &c.Slug, &c.Category, &logoURL, &description, &active)
	if err != nil {
		return nil, err
	}

	c.LogoURL = stringPtr(logoURL)
	c.Description = stringPtr(description)
	c.IsActive = active != 0
	return &c, nil
}

const catalogCols = `id, name, slug, category, logo_url, description, is_active`

func (s *CatalogStore) Create(name, slug, category string, logoURL, description *string) (*model.CatalogService, error) {
	id := newID()
	_, err := s.db.Exec(
		`INSERT INTO catalog_services (id, name, slug, category, logo_url, description) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, slug, category, nullString(logoURL), nullString(description),
	)
	if err != nil {
		return nil, fmt.Errorf("insert catalog service: %w", err)
	}
	return s.GetByID(id)
}

func (s *CatalogStore) GetByID(id string) (*model.CatalogService, error) {
	row := s.db.QueryRow(`SELECT `+catalogCols+` FROM catalog_services WHERE id = ?`, id)
	c, err := scanCatalogService(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog service: %w", err)
	}
	return c, nil
}

func (s *CatalogStore) GetBySlug(slug string) (*model.CatalogService, error) {
	row := s.db.QueryRow(`SELECT `+catalogCols+` FROM catalog_services WHERE slug = ?`, slug)
	c, err := scanCatalogService(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog service by slug: %w", err)
	}
	return c, nil
}

// ListActive returns active services ordered by category, then name.
func (s *CatalogStore) ListActive() ([]model.CatalogService, error) {
	rows, err := s.db.Query(`SELECT ` + catalogCols + ` FROM catalog_services WHERE is_active = 1 ORDER BY category ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list catalog services: %w", err)
	}
	defer rows.Close()

	var services []model.CatalogService
	for rows.Next() {
		c, err := scanCatalogService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog service: %w", err)
		}
		services = append(services, *c)
	}
	return services, rows.Err()
}
