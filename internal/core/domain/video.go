package domain

import "time"

// OwnerSummary is the condensed projection of a video's owner.
type OwnerSummary struct {
	FullName  string `json:"fullName"`
	UserName  string `json:"userName"`
	AvatarURL string `json:"avatar"`
}

// VideoSummary is a watch-history entry resolved from a video reference.
type VideoSummary struct {
	ID           string       `json:"_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	VideoURL     string       `json:"videoFile"`
	ThumbnailURL string       `json:"thumbnail"`
	Duration     float64      `json:"duration"`
	Views        int64        `json:"views"`
	IsPublished  bool         `json:"isPublished"`
	CreatedAt    time.Time    `json:"createdAt"`
	Owner        OwnerSummary `json:"owner"`
}
