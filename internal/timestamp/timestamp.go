// Package timestamp parses and formats the playback positions used in
// comment links and share URLs.
package timestamp

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// QueryKey is the share URL query parameter carrying the start position
const QueryKey = "t"

// ErrInvalid is returned for text that is not a timestamp
var ErrInvalid = errors.New("invalid timestamp")

// Parse reads a position written as "83", "1:23", "01:02:03" or "1m23s".
// Fractions of a second are dropped from the colon forms.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}

	if strings.Contains(s, ":") {
		return parseClock(s)
	}
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("%w: %q is negative", ErrInvalid, s)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return d, nil
}

// parseClock reads m:ss or h:mm:ss
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q has too many fields", ErrInvalid, s)
	}

	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if i == len(parts)-1 && err != nil {
			// Allow 1:23.5
			f, ferr := strconv.ParseFloat(part, 64)
			n, err = int(f), ferr
		}
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%w: %q field %d out of range", ErrInvalid, s, i+1)
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second, nil
}

// FromURL returns the start position carried by a share URL's t parameter,
// or zero when it has none
func FromURL(raw string) (time.Duration, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid url: %w", err)
	}
	t := u.Query().Get(QueryKey)
	if t == "" {
		return 0, nil
	}
	return Parse(t)
}

// Format renders d as m:ss, or h:mm:ss from one hour up
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ShareURL builds the watch link for a video starting at the given position.
// Positions under one second produce a link without t.
func ShareURL(base, shortID string, at time.Duration) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	u = u.JoinPath("v", shortID)

	if seconds := int64(at / time.Second); seconds > 0 {
		q := u.Query()
		q.Set(QueryKey, strconv.FormatInt(seconds, 10))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
