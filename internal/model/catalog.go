package model

type CatalogService struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Category    string  `json:"category"`
	LogoURL     *string `json:"logo_url"`
	Description *string `json:"description"`
	IsActive    bool    `json:"is_active"`
}
