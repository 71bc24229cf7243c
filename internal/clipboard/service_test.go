package clipboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipset/clipview/internal/config"
)

type recordedRun struct {
	args  []string
	stdin string
}

func newTestService(command string) (*Service, *[]string, *[]recordedRun) {
	cfg := config.Default()
	cfg.Advanced.Clipboard.Command = command
	s := NewService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var written []string
	var runs []recordedRun
	s.writeAll = func(text string) error {
		written = append(written, text)
		return nil
	}
	s.runCommand = func(cmd *exec.Cmd) error {
		in, _ := io.ReadAll(cmd.Stdin)
		runs = append(runs, recordedRun{args: cmd.Args, stdin: string(in)})
		return nil
	}
	s.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	return s, &written, &runs
}

func TestWrite_Primary(t *testing.T) {
	s, written, runs := newTestService("")

	require.NoError(t, s.Write(context.Background(), "https://clips.example/v/abc123?t=83"))
	assert.Equal(t, []string{"https://clips.example/v/abc123?t=83"}, *written)
	assert.Empty(t, *runs)
}

func TestWrite_ConfiguredCommand(t *testing.T) {
	s, written, runs := newTestService(`wl-copy --type 'text/plain'`)

	require.NoError(t, s.Write(context.Background(), "link"))
	assert.Empty(t, *written)
	require.Len(t, *runs, 1)
	assert.Equal(t, []string{"wl-copy", "--type", "text/plain"}, (*runs)[0].args)
	assert.Equal(t, "link", (*runs)[0].stdin)
}

func TestWrite_CommandFailure(t *testing.T) {
	s, _, _ := newTestService("xclip")
	s.runCommand = func(*exec.Cmd) error { return errors.New("exit status 1") }

	err := s.Write(context.Background(), "link")
	assert.ErrorContains(t, err, "clipboard command xclip failed")
}

func TestWrite_FallbackUnavailable(t *testing.T) {
	s, _, _ := newTestService("")
	s.writeAll = func(string) error { return errors.New("no display") }

	err := s.Write(context.Background(), "link")
	if s.fallbackCommand() == nil {
		assert.ErrorIs(t, err, ErrUnavailable)
	} else {
		assert.NoError(t, err)
	}
}

func TestCopyShareLink(t *testing.T) {
	s, written, _ := newTestService("")

	msg := s.CopyShareLink("https://clips.example", "abc123", 83*time.Second)()
	copied, ok := msg.(CopiedMsg)
	require.True(t, ok)
	require.NoError(t, copied.Err)
	assert.Equal(t, "https://clips.example/v/abc123?t=83", copied.Text)
	assert.Equal(t, []string{copied.Text}, *written)

	msg = s.CopyShareLink("://bad", "abc123", 0)()
	assert.Error(t, msg.(CopiedMsg).Err)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"pbcopy", []string{"pbcopy"}},
		{"xclip -selection clipboard", []string{"xclip", "-selection", "clipboard"}},
		{`sh -c "cat > /tmp/clip"`, []string{"sh", "-c", "cat > /tmp/clip"}},
		{`say 'it"s'`, []string{"say", `it"s`}},
		{"  spaced   out  ", []string{"spaced", "out"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCommand(tt.in), tt.in)
	}
}

func TestNewService_NilConfig(t *testing.T) {
	s := NewService(nil, nil)
	assert.Empty(t, s.command)
	assert.NotNil(t, s.logger)
}
