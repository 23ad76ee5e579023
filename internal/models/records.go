package models

import "time"

// DedupeKey is the identity used to detect duplicates within one business and
// entity type. Records without a language are keyed by slug alone.
func DedupeKey(language, slug string) string {
	if language == "" {
		return slug
	}
	return language + "|" + slug
}

// Keyword is a search phrase targeted by generated pages.
type Keyword struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Keyword    string    `json:"keyword"`
	Slug       string    `json:"slug"`
	Language   string    `json:"language"`
	Priority   int       `json:"priority,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Key returns the keyword's dedupe key.
func (k Keyword) Key() string { return DedupeKey(k.Language, k.Slug) }

// KeywordInput creates a keyword.
type KeywordInput struct {
	Keyword  string `json:"keyword"`
	Slug     string `json:"slug"`
	Language string `json:"language"`
	Priority int    `json:"priority,omitempty"`
}

// ServiceArea is a city the business serves.
type ServiceArea struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	City       string    `json:"city"`
	State      string    `json:"state,omitempty"`
	County     string    `json:"county,omitempty"`
	Slug       string    `json:"slug"`
	Priority   int       `json:"priority,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Key returns the area's dedupe key.
func (a ServiceArea) Key() string { return DedupeKey("", a.Slug) }

// ServiceAreaInput creates a service area.
type ServiceAreaInput struct {
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	County   string `json:"county,omitempty"`
	Slug     string `json:"slug"`
	Priority int    `json:"priority,omitempty"`
}

// ServiceOffering is a service the business sells.
type ServiceOffering struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	NameES     string    `json:"name_es,omitempty"`
	Slug       string    `json:"slug"`
	IsPrimary  bool      `json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
}

// Key returns the offering's dedupe key.
func (s ServiceOffering) Key() string { return DedupeKey("", s.Slug) }

// ServiceOfferingInput creates a service offering.
type ServiceOfferingInput struct {
	Name      string `json:"name"`
	NameES    string `json:"name_es,omitempty"`
	Slug      string `json:"slug"`
	IsPrimary bool   `json:"is_primary,omitempty"`
}

// PromptTemplate is the prompt used to generate one page type.
type PromptTemplate struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	PageType   string    `json:"page_type"`
	Version    int       `json:"version"`
	Template   string    `json:"template"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PromptTemplateInput creates or updates a prompt template.
type PromptTemplateInput struct {
	PageType string `json:"page_type"`
	Template string `json:"template"`
	IsActive bool   `json:"is_active"`
}
