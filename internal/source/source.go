// Package source resolves Clipset videos and playlists into playable
// sources through the Clipset HTTP API.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"

	"github.com/clipset/clipview/internal/config"
	"github.com/clipset/clipview/internal/player"
	"github.com/clipset/clipview/internal/timestamp"
)

var (
	// ErrNotFound is returned when the server has no such video or playlist
	ErrNotFound = errors.New("not found")
	// ErrNoStream is returned when a ready video has no stream URL
	ErrNoStream = errors.New("video has no stream")
)

// NotReadyError is returned for videos that are still being processed
type NotReadyError struct {
	ShortID string
	Status  string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("video %s is not ready (status: %s)", e.ShortID, e.Status)
}

// Is makes errors.Is(err, ErrNotReady) match any NotReadyError
func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// ErrNotReady matches every NotReadyError
var ErrNotReady = errors.New("video is not ready")

// Resolver talks to a Clipset server
type Resolver struct {
	client  *resty.Client
	baseURL *url.URL
	token   string
	logger  *slog.Logger
}

// New creates a Resolver
func New(cfg ClientConfig) (*Resolver, error) {
	defaults := DefaultClientConfig()
	cfg.BaseURL = lo.CoalesceOrEmpty(cfg.BaseURL, defaults.BaseURL)
	cfg.UserAgent = lo.CoalesceOrEmpty(cfg.UserAgent, defaults.UserAgent)
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = defaults.RetryWait
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", cfg.BaseURL)
	}
	cfg.BaseURL = base.String()

	return &Resolver{
		client:  newRestyClient(cfg),
		baseURL: base,
		token:   cfg.Token,
		logger:  cfg.Logger,
	}, nil
}

// NewFromConfig creates a Resolver from the server section of the config
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Resolver, error) {
	return New(ClientConfig{
		BaseURL: cfg.Server.BaseURL,
		Token:   cfg.Server.Token,
		Timeout: cfg.Server.Timeout,
		Debug:   cfg.Advanced.Debug,
		Logger:  logger,
	})
}

// BaseURL returns the server address
func (r *Resolver) BaseURL() string {
	return r.baseURL.String()
}

// Video fetches a video's metadata
func (r *Resolver) Video(ctx context.Context, shortID string) (*Video, error) {
	var video Video
	if err := r.get(ctx, "/api/videos/{id}", shortID, &video); err != nil {
		return nil, fmt.Errorf("failed to fetch video %s: %w", shortID, err)
	}
	return &video, nil
}

// StreamInfo fetches where a video can be streamed from
func (r *Resolver) StreamInfo(ctx context.Context, shortID string) (*StreamInfo, error) {
	var info StreamInfo
	if err := r.get(ctx, "/api/videos/{id}/stream-info", shortID, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch stream info for %s: %w", shortID, err)
	}
	return &info, nil
}

// Resolve turns a video short id into a playable source. HLS manifests
// are preferred over progressive files.
func (r *Resolver) Resolve(ctx context.Context, shortID string) (player.Source, error) {
	info, err := r.StreamInfo(ctx, shortID)
	if err != nil {
		return player.Source{}, err
	}
	if !info.Ready {
		return player.Source{}, &NotReadyError{
			ShortID: shortID,
			Status:  lo.FromPtrOr(info.ProcessingStatus, "unknown"),
		}
	}

	stream, format := "", info.Format
	switch {
	case lo.FromPtr(info.ManifestURL) != "":
		stream, format = *info.ManifestURL, FormatHLS
	case lo.FromPtr(info.StreamURL) != "":
		stream = *info.StreamURL
		if format != FormatHLS {
			format = FormatProgressive
		}
	default:
		return player.Source{}, fmt.Errorf("%w: %s", ErrNoStream, shortID)
	}

	src := player.Source{
		URL:       r.absolute(stream),
		PosterURL: r.absolute("/api/videos/" + url.PathEscape(shortID) + "/thumbnail"),
		Format:    format,
		Headers:   r.headers(),
	}

	// The title is cosmetic, a failed lookup still plays.
	if video, err := r.Video(ctx, shortID); err == nil {
		src.Title = video.Title
	} else {
		r.logger.Warn("failed to fetch video title", "short_id", shortID, "error", err)
	}

	r.logger.Debug("resolved source", "short_id", shortID, "format", src.Format, "url", src.URL)
	return src, nil
}

// Markers lists the comment markers of a video, ordered by time
func (r *Resolver) Markers(ctx context.Context, videoID string) ([]Marker, error) {
	var markers []Marker
	if err := r.get(ctx, "/api/videos/{id}/comment-markers", videoID, &markers); err != nil {
		return nil, fmt.Errorf("failed to fetch comment markers for %s: %w", videoID, err)
	}
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].Seconds < markers[j].Seconds })
	return markers, nil
}

// Playlist fetches a playlist with its videos ordered by position
func (r *Resolver) Playlist(ctx context.Context, shortID string) (*Playlist, error) {
	var playlist Playlist
	if err := r.get(ctx, "/api/playlists/{id}", shortID, &playlist); err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", shortID, err)
	}
	sort.SliceStable(playlist.Videos, func(i, j int) bool {
		return playlist.Videos[i].Position < playlist.Videos[j].Position
	})
	return &playlist, nil
}

func (r *Resolver) get(ctx context.Context, path, id string, out any) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return statusError(resp)
	}
	if err := decode(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// headers are passed to the media element for authenticated streams
func (r *Resolver) headers() map[string]string {
	if r.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + r.token}
}

// absolute resolves server-relative URLs against the base URL
func (r *Resolver) absolute(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return r.baseURL.JoinPath(u.Path).String() + querySuffix(u)
	}
	return r.baseURL.ResolveReference(u).String()
}

func querySuffix(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}

func decode(body []byte, out any) error {
	return json.Unmarshal(body, out)
}

// Ref is what a user asked to play: either a Clipset video or a plain media URL
type Ref struct {
	ShortID string
	URL     string
	Start   time.Duration
}

// IsDirect reports whether the ref bypasses resolution
func (r Ref) IsDirect() bool {
	return r.ShortID == ""
}

// ParseRef interprets a command line argument. Share links on the
// configured server (base/v/{short_id}?t=N) and bare short ids resolve
// through the API, any other URL is played as is.
func ParseRef(base, arg string) (Ref, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Ref{}, errors.New("empty video reference")
	}
	if !strings.Contains(arg, "://") {
		return Ref{ShortID: arg}, nil
	}

	u, err := url.Parse(arg)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid url: %w", err)
	}
	start, err := timestamp.FromURL(arg)
	if err != nil {
		return Ref{}, err
	}

	if b, err := url.Parse(base); err == nil && strings.EqualFold(b.Host, u.Host) {
		rest := strings.TrimPrefix(u.Path, strings.TrimRight(b.Path, "/"))
		if id, ok := strings.CutPrefix(rest, "/v/"); ok && id != "" && !strings.Contains(id, "/") {
			return Ref{ShortID: id, Start: start}, nil
		}
	}
	return Ref{URL: arg, Start: start}, nil
}
