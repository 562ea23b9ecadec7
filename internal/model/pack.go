package model

import "time"

// Pack is a downloadable lead-magnet bundle. Only DownloadCount changes after
// publication.
type Pack struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Description   string    `json:"description" yaml:"description"`
	FileURL       string    `json:"file_url" yaml:"file_url"`
	FileSize      int64     `json:"file_size" yaml:"file_size"`
	IsPremium     bool      `json:"is_premium" yaml:"is_premium"`
	Tags          []string  `json:"tags" yaml:"tags"`
	DownloadCount int64     `json:"download_count" yaml:"-"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"-"`
}

type PackFilter struct {
	Tag     string
	Premium *bool
}

type PackListData struct {
	Packs []Pack `json:"packs"`
}
