// Package models holds the dashboard's domain records as the API returns them.
package models

import "time"

// Language tags used for bilingual content.
const (
	LanguageEnglish = "en"
	LanguageSpanish = "es"
)

// Business is a client account whose pages are generated.
type Business struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Industry        string    `json:"industry"`
	Website         string    `json:"website,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	Address         string    `json:"address,omitempty"`
	City            string    `json:"city,omitempty"`
	State           string    `json:"state,omitempty"`
	PostalCode      string    `json:"postal_code,omitempty"`
	PrimaryLanguage string    `json:"primary_language"`
	Languages       []string  `json:"languages"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BusinessInput is the writable subset of Business.
type BusinessInput struct {
	Name            string   `json:"name"`
	Industry        string   `json:"industry"`
	Website         string   `json:"website,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Email           string   `json:"email,omitempty"`
	Address         string   `json:"address,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	PostalCode      string   `json:"postal_code,omitempty"`
	PrimaryLanguage string   `json:"primary_language,omitempty"`
	Languages       []string `json:"languages,omitempty"`
}

// Pagination is the paging block of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}
