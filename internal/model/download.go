package model

import (
	"io"
	"time"
)

type Download struct {
	ID           string    `json:"id"`
	ClaimID      string    `json:"claim_id"`
	PackID       string    `json:"pack_id"`
	UserID       string    `json:"user_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

type ClientInfo struct {
	IP        string
	UserAgent string
}

// PackFile is an opened pack payload ready to be streamed. Size is -1 when
// unknown. The caller owns Body.
type PackFile struct {
	Title       string
	ContentType string
	Size        int64
	Body        io.ReadCloser
	Source      string
}
