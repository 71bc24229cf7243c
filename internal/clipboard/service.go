// Package clipboard copies share links to the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clipset/clipview/internal/config"
	"github.com/clipset/clipview/internal/timestamp"
)

// ErrUnavailable is returned when neither atotto/clipboard nor a platform tool works
var ErrUnavailable = errors.New("clipboard unavailable")

// CopiedMsg reports the result of an asynchronous copy
type CopiedMsg struct {
	Text string
	Err  error
}

// Service copies text to the system clipboard
type Service struct {
	command string
	logger  *slog.Logger

	// replaced in tests
	writeAll   func(string) error
	runCommand func(cmd *exec.Cmd) error
	lookPath   func(string) (string, error)
}

// NewService creates a clipboard service. cfg may be nil.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		logger:     logger,
		writeAll:   clipboard.WriteAll,
		runCommand: func(cmd *exec.Cmd) error { return cmd.Run() },
		lookPath:   exec.LookPath,
	}
	if cfg != nil {
		s.command = cfg.Advanced.Clipboard.Command
	}
	return s
}

// Write copies text. A configured command wins, otherwise atotto/clipboard
// is tried before the platform tools.
func (s *Service) Write(ctx context.Context, text string) error {
	if s.command != "" {
		return s.copyWithCommand(ctx, text, s.command)
	}

	err := s.writeAll(text)
	if err == nil {
		s.logger.Debug("copied to clipboard", "text_length", len(text))
		return nil
	}
	s.logger.Warn("failed to copy to clipboard using primary method", "error", err)

	parts := s.fallbackCommand()
	if parts == nil {
		return fmt.Errorf("%w: no clipboard tool found: %v", ErrUnavailable, err)
	}
	return s.run(ctx, text, parts)
}

// WriteCmd copies text in the background and reports a CopiedMsg
func (s *Service) WriteCmd(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return CopiedMsg{Text: text, Err: s.Write(ctx, text)}
	}
}

// CopyShareLink copies the watch link of a video at the given position
func (s *Service) CopyShareLink(base, shortID string, at time.Duration) tea.Cmd {
	link, err := timestamp.ShareURL(base, shortID, at)
	if err != nil {
		return func() tea.Msg { return CopiedMsg{Err: err} }
	}
	return s.WriteCmd(link)
}

func (s *Service) copyWithCommand(ctx context.Context, text, command string) error {
	parts := parseCommand(command)
	if len(parts) == 0 {
		return fmt.Errorf("invalid clipboard command in config: %q", command)
	}
	return s.run(ctx, text, parts)
}

func (s *Service) run(ctx context.Context, text string, parts []string) error {
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(text)

	s.logger.Debug("running clipboard command", "command_parts", parts, "text_length", len(text))
	if err := s.runCommand(cmd); err != nil {
		return fmt.Errorf("clipboard command %s failed: %w", parts[0], err)
	}
	return nil
}

// fallbackCommand picks a platform clipboard tool, nil when none is installed
func (s *Service) fallbackCommand() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"clip.exe"}
	case "darwin":
		return []string{"pbcopy"}
	case "linux":
		if isWSL() {
			return []string{"clip.exe"}
		}
		candidates := [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
		for _, c := range candidates {
			if _, err := s.lookPath(c[0]); err == nil {
				return c
			}
		}
	}
	return nil
}

// parseCommand splits a command string into arguments, respecting quotes
func parseCommand(command string) []string {
	var parts []string
	var current strings.Builder
	var quote rune
	inQuotes := false

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, char := range command {
		switch {
		case (char == '\'' || char == '"') && !inQuotes:
			inQuotes, quote = true, char
		case inQuotes && char == quote:
			inQuotes = false
		case char == ' ' && !inQuotes:
			flush()
		default:
			current.WriteRune(char)
		}
	}
	flush()
	return parts
}

func isWSL() bool {
	version, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := strings.ToLower(string(version))
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}
