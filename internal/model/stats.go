package model

type PackDownloadStat struct {
	PackID        string `json:"pack_id"`
	Title         string `json:"title"`
	DownloadCount int64  `json:"download_count"`
}

type PortalStats struct {
	Packs     int64              `json:"packs"`
	Claims    int64              `json:"claims"`
	Downloads int64              `json:"downloads"`
	TopPacks  []PackDownloadStat `json:"top_packs"`
}
