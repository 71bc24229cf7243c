package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/natefinch/lumberjack.v2"
)

// stderrFile sends logs to the console instead of a rotated file
const stderrFile = "-"

// InitLogger builds the application logger from cfg and installs it as the
// slog default. An empty cfg.File logs to the state directory; "-" logs to stderr.
func InitLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	logger, err := NewLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// NewLogger builds a logger from cfg. console receives output when cfg.File is "-".
func NewLogger(cfg *LoggingConfig, console io.Writer) (*slog.Logger, error) {
	if cfg.File == "" {
		cfg.File = filepath.Join(getStateDir(), "clipview", "clipview.log")
	}

	var writer io.Writer
	toConsole := cfg.File == stderrFile
	if toConsole {
		writer = console
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writer = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	switch {
	case strings.EqualFold(cfg.Format, "json"):
		handler = slog.NewJSONHandler(writer, opts)
	case cfg.Color && toConsole:
		handler = NewColoredTextHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler), nil
}

var levelStyles = map[slog.Level]lipgloss.Style{
	slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

// ColoredTextHandler renders records like slog.TextHandler and colors the
// time/level prefix by severity
type ColoredTextHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	buf    *bytes.Buffer
	inner  slog.Handler
}

// NewColoredTextHandler creates a colored text handler writing to w
func NewColoredTextHandler(w io.Writer, opts *slog.HandlerOptions) *ColoredTextHandler {
	buf := &bytes.Buffer{}
	return &ColoredTextHandler{
		mu:     &sync.Mutex{},
		writer: w,
		buf:    buf,
		inner:  slog.NewTextHandler(buf, opts),
	}
}

// Enabled implements slog.Handler
func (h *ColoredTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ColoredTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	line := h.buf.String()
	if style, ok := levelStyles[r.Level]; ok {
		// time=... level=... msg=...: color up to the message
		if i := strings.Index(line, " msg="); i > 0 {
			line = style.Render(line[:i]) + line[i:]
		}
	}
	_, err := io.WriteString(h.writer, line)
	return err
}

// WithAttrs implements slog.Handler
func (h *ColoredTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColoredTextHandler{mu: h.mu, writer: h.writer, buf: h.buf, inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler
func (h *ColoredTextHandler) WithGroup(name string) slog.Handler {
	return &ColoredTextHandler{mu: h.mu, writer: h.writer, buf: h.buf, inner: h.inner.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
