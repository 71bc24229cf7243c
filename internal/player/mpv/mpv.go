package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diniamo/gopv"
	"github.com/samber/lo"

	"github.com/clipset/clipview/internal/clock"
	"github.com/clipset/clipview/internal/config"
	"github.com/clipset/clipview/internal/player"
)

const (
	startTimeout = 15 * time.Second
	dialTimeout  = 2 * time.Second
	quitTimeout  = 500 * time.Millisecond

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options configures an Element
type Options struct {
	Executable     string // mpv binary, looked up in PATH when empty
	LoadUserConfig bool
	Debug          bool
	Volume         int
	UserAgent      string
	ExtraArgs      []string

	Logger *slog.Logger
	Clock  clock.Clock
}

// OptionsFromConfig builds Options from the player section of the config
func OptionsFromConfig(cfg *config.PlayerConfig, debug bool) Options {
	return Options{
		Executable:     cfg.Executable,
		LoadUserConfig: cfg.LoadUserConfig,
		Debug:          debug,
		Volume:         cfg.Volume,
		UserAgent:      cfg.UserAgent,
		ExtraArgs:      cfg.ExtraArgs,
	}
}

// Element is a player.Element backed by an mpv process. Commands go through
// gopv; native events come from property observers on a second IPC connection.
type Element struct {
	mu     sync.Mutex
	loadMu sync.Mutex

	opts       Options
	platform   Platform
	executable string
	logger     *slog.Logger

	cmd       *exec.Cmd
	ipcConfig *IPCConfig
	client    *gopv.Client
	events    net.Conn

	handlers    map[int]func(player.Event)
	nextHandler int
	closed      bool
}

// New creates an Element. mpv is not started until Load.
func New(opts Options) (*Element, error) {
	platform := DetectPlatform()
	executable, err := FindMPVExecutable(platform, opts.Executable)
	if err != nil {
		return nil, fmt.Errorf("mpv not found: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Element{
		opts:       opts,
		platform:   platform,
		executable: executable,
		logger:     opts.Logger.With("component", "mpv"),
		handlers:   make(map[int]func(player.Event)),
	}, nil
}

// NewWithConfig creates an Element from the application config
func NewWithConfig(cfg *config.Config, logger *slog.Logger) (*Element, error) {
	opts := OptionsFromConfig(&cfg.Player, cfg.Advanced.Debug)
	opts.Logger = logger
	return New(opts)
}

// Load starts mpv paused on src, or replaces the current file when mpv is
// already running. It returns once mpv accepts IPC commands.
func (e *Element) Load(ctx context.Context, src player.Source) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.mu.Lock()
	closed, running := e.closed, e.client != nil
	e.mu.Unlock()

	switch {
	case closed:
		return player.ErrClosed
	case running:
		return e.replace(ctx, src)
	default:
		return e.start(ctx, src)
	}
}

func (e *Element) start(ctx context.Context, src player.Source) error {
	ipcConfig, err := GetIPCConfig(e.platform)
	if err != nil {
		return fmt.Errorf("failed to generate IPC config: %w", err)
	}

	cmd := exec.Command(e.executable, buildArgs(ipcConfig, src, e.opts)...)
	// Keep mpv off the terminal the TUI is drawing on.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setupProcessAttributes(cmd)

	if err := cmd.Start(); err != nil {
		cleanupIPC(ipcConfig)
		return fmt.Errorf("failed to start %s: %w", e.executable, err)
	}

	fail := func(err error) error {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		cleanupIPC(ipcConfig)
		return err
	}

	initCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := waitForIPC(initCtx, ipcConfig); err != nil {
		return fail(fmt.Errorf("timeout waiting for mpv IPC at %s: %w", ipcConfig.Address, err))
	}

	client, err := gopv.Connect(GetGopvConnectionString(ipcConfig), func(err error) {
		e.logger.Warn("mpv IPC error", "error", err)
	})
	if err != nil {
		return fail(fmt.Errorf("failed to connect to mpv IPC at %s: %w", ipcConfig.Address, err))
	}

	conn, err := dialIPC(ipcConfig, dialTimeout)
	if err != nil {
		return fail(fmt.Errorf("failed to open mpv event stream: %w", err))
	}
	if err := observe(conn); err != nil {
		conn.Close()
		return fail(err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		conn.Close()
		return fail(player.ErrClosed)
	}
	e.cmd = cmd
	e.ipcConfig = ipcConfig
	e.client = client
	e.events = conn
	e.mu.Unlock()

	go e.readEvents(conn, newTranslator(e.opts.Clock.Now))
	go e.monitorProcess(cmd)

	e.logger.Info("mpv started", "ipc", ipcConfig.Address, "source", src.URL)
	return nil
}

// replace loads src into the running mpv
func (e *Element) replace(ctx context.Context, src player.Source) error {
	if err := e.request(ctx, "set title", func(c *gopv.Client) (any, error) {
		return c.Request("set", "force-media-title", src.Title)
	}); err != nil {
		return err
	}
	if err := e.request(ctx, "set headers", func(c *gopv.Client) (any, error) {
		return c.Request("set", "http-header-fields", strings.Join(headerFields(src.Headers), ","))
	}); err != nil {
		return err
	}
	if err := e.setProperty(ctx, "pause", true); err != nil {
		return err
	}
	return e.request(ctx, "loadfile", func(c *gopv.Client) (any, error) {
		return c.Request("loadfile", src.URL, "replace")
	})
}

// observe registers the property observers on conn. mpv only sends
// property-change events to the client that registered them.
func observe(conn net.Conn) error {
	for i, name := range observedProperties {
		line, err := json.Marshal(map[string]any{"command": []any{"observe_property", i + 1, name}})
		if err != nil {
			return fmt.Errorf("failed to encode observer for %s: %w", name, err)
		}
		if _, err := conn.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to observe %s: %w", name, err)
		}
	}
	return nil
}

// readEvents decodes the newline-delimited event stream until conn closes
func (e *Element) readEvents(conn net.Conn, t *translator) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			e.logger.Debug("skipping malformed mpv message", "error", err)
			continue
		}
		if msg.Event == "" {
			// Reply to an observe_property command
			if msg.Error != "" && msg.Error != "success" {
				e.logger.Warn("mpv rejected observer", "error", msg.Error)
			}
			continue
		}
		for _, ev := range t.translate(msg) {
			e.emit(ev)
		}
	}

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, net.ErrClosed) {
		err = io.EOF
	}
	e.logger.Warn("mpv event stream ended", "error", err)
}

// monitorProcess waits for mpv to exit and reports unexpected exits
func (e *Element) monitorProcess(cmd *exec.Cmd) {
	err := cmd.Wait()

	e.mu.Lock()
	closed := e.closed
	if e.cmd == cmd {
		e.cmd = nil
		e.client = nil
		cleanupIPC(e.ipcConfig)
		e.ipcConfig = nil
		if e.events != nil {
			e.events.Close()
			e.events = nil
		}
	}
	e.mu.Unlock()

	if closed {
		return
	}
	if err == nil {
		err = errors.New("mpv quit")
	}
	e.emit(player.Event{Type: player.EventError, Err: fmt.Errorf("mpv process exited unexpectedly: %w", err)})
}

func (e *Element) emit(ev player.Event) {
	e.mu.Lock()
	handlers := lo.Values(e.handlers)
	e.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Listen registers handler for native events. Handlers run on the event
// reader goroutine.
func (e *Element) Listen(handler func(player.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextHandler
	e.nextHandler++
	e.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.handlers, id)
		})
	}
}

// Play resumes playback
func (e *Element) Play(ctx context.Context) error {
	return e.setProperty(ctx, "pause", false)
}

// Pause pauses playback
func (e *Element) Pause(ctx context.Context) error {
	return e.setProperty(ctx, "pause", true)
}

// Seek seeks to an absolute position
func (e *Element) Seek(ctx context.Context, position time.Duration) error {
	seconds := position.Seconds()
	return e.request(ctx, "seek", func(c *gopv.Client) (any, error) {
		return c.Request("seek", seconds, "absolute")
	})
}

// SetFullscreen requests a fullscreen change
func (e *Element) SetFullscreen(ctx context.Context, fullscreen bool) error {
	return e.setProperty(ctx, "fullscreen", fullscreen)
}

// SetMuted requests a mute change
func (e *Element) SetMuted(ctx context.Context, muted bool) error {
	return e.setProperty(ctx, "mute", muted)
}

func (e *Element) setProperty(ctx context.Context, name string, value any) error {
	return e.request(ctx, "set "+name, func(c *gopv.Client) (any, error) {
		return c.Request("set_property", name, value)
	})
}

// request runs fn against the gopv client, giving up when ctx is done
func (e *Element) request(ctx context.Context, what string, fn func(*gopv.Client) (any, error)) error {
	e.mu.Lock()
	client, closed := e.client, e.closed
	e.mu.Unlock()

	if closed {
		return player.ErrClosed
	}
	if client == nil {
		return player.ErrNotLoaded
	}

	done := make(chan error, 1)
	go func() {
		_, err := fn(client)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("mpv %s: %w", what, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mpv %s: %w", what, err)
		}
		return nil
	}
}

// Close quits mpv and releases its IPC resources. Safe to call more than once.
func (e *Element) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	client, cmd, events, ipcConfig := e.client, e.cmd, e.events, e.ipcConfig
	e.client, e.cmd, e.events, e.ipcConfig = nil, nil, nil, nil
	e.handlers = make(map[int]func(player.Event))
	e.mu.Unlock()

	if client != nil {
		// gopv closes itself when mpv exits; closing it here as well races
		// its reader.
		done := make(chan struct{})
		go func() {
			_, _ = client.Request("quit")
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(quitTimeout):
		}
	}
	if events != nil {
		events.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	cleanupIPC(ipcConfig)

	e.logger.Info("mpv closed")
	return nil
}

// buildArgs builds the mpv command line for src
func buildArgs(ipc *IPCConfig, src player.Source, opts Options) []string {
	args := []string{
		GetMPVIPCArgument(ipc),
		"--idle=yes",
		"--keep-open=yes", // stay on the last frame so eof-reached reports the end
		"--pause",         // playback starts on request
		"--force-window=yes",
		"--no-ytdl",
	}

	if !opts.LoadUserConfig {
		args = append(args, "--no-config")
	}
	if !opts.Debug {
		args = append(args, "--msg-level=all=warn")
	}
	if opts.Volume > 0 {
		args = append(args, fmt.Sprintf("--volume=%d", opts.Volume))
	}

	userAgent := lo.CoalesceOrEmpty(src.Headers["User-Agent"], opts.UserAgent, defaultUserAgent)
	args = append(args, "--user-agent="+userAgent)
	if referer := src.Headers["Referer"]; referer != "" {
		args = append(args, "--referrer="+referer)
	}
	if fields := headerFields(src.Headers); len(fields) > 0 {
		args = append(args, "--http-header-fields="+strings.Join(fields, ","))
	}

	if src.Title != "" {
		args = append(args, "--force-media-title="+src.Title)
	}

	args = append(args, opts.ExtraArgs...)

	// URL must be last
	return append(args, src.URL)
}

// headerFields renders the headers mpv has no dedicated option for, sorted
func headerFields(headers map[string]string) []string {
	fields := make([]string, 0, len(headers))
	for key, value := range headers {
		if key == "User-Agent" || key == "Referer" {
			continue
		}
		fields = append(fields, fmt.Sprintf("%s: %s", key, value))
	}
	sort.Strings(fields)
	return fields
}

// waitForIPC polls until mpv's IPC endpoint accepts connections
func waitForIPC(ctx context.Context, ipc *IPCConfig) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			switch ipc.Type {
			case IPCUnixSocket:
				if _, err := os.Stat(ipc.Address); err == nil {
					return nil
				}
			case IPCNamedPipe:
				if isPipeReady(ipc.Address) {
					return nil
				}
			case IPCTCP:
				if conn, err := net.DialTimeout("tcp", ipc.Address, 200*time.Millisecond); err == nil {
					conn.Close()
					return nil
				}
			}
		}
	}
}
