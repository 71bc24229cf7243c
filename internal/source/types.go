package source

import (
	"time"
)

// Stream formats reported by the server
const (
	FormatHLS         = "hls"
	FormatProgressive = "progressive"
	FormatUnknown     = "unknown"
)

// StreamInfo is the stream-info response
type StreamInfo struct {
	Format           string  `json:"format"`
	ManifestURL      *string `json:"manifest_url"`
	StreamURL        *string `json:"stream_url"`
	Ready            bool    `json:"ready"`
	ProcessingStatus *string `json:"processing_status"`
}

// Video is the subset of a video's metadata the client uses
type Video struct {
	ID                string    `json:"id"`
	ShortID           string    `json:"short_id"`
	Title             string    `json:"title"`
	Description       *string   `json:"description"`
	ThumbnailFilename *string   `json:"thumbnail_filename"`
	DurationSeconds   *int32    `json:"duration_seconds"`
	ViewCount         int32     `json:"view_count"`
	ProcessingStatus  string    `json:"processing_status"`
	CreatedAt         time.Time `json:"created_at"`
	UploaderUsername  string    `json:"uploader_username"`
}

// Duration returns the stored duration, zero when unknown
func (v Video) Duration() time.Duration {
	if v.DurationSeconds == nil {
		return 0
	}
	return time.Duration(*v.DurationSeconds) * time.Second
}

// Marker counts the comments left at one second of a video
type Marker struct {
	Seconds int `json:"seconds"`
	Count   int `json:"count"`
}

// At returns the marker position
func (m Marker) At() time.Duration {
	return time.Duration(m.Seconds) * time.Second
}

// PlaylistVideo is one entry of a playlist. Positions start at 0.
type PlaylistVideo struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id"`
	VideoID    string    `json:"video_id"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"added_at"`
	Video      Video     `json:"video"`
}

// Playlist is a playlist with its videos
type Playlist struct {
	ID              string          `json:"id"`
	ShortID         string          `json:"short_id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	CreatorUsername string          `json:"creator_username"`
	VideoCount      int             `json:"video_count"`
	IsPublic        bool            `json:"is_public"`
	Videos          []PlaylistVideo `json:"videos"`
}
