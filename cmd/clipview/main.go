package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/clipset/clipview/internal/clipboard"
	"github.com/clipset/clipview/internal/config"
	"github.com/clipset/clipview/internal/player/mpv"
	"github.com/clipset/clipview/internal/queue"
	"github.com/clipset/clipview/internal/source"
	"github.com/clipset/clipview/internal/timestamp"
	"github.com/clipset/clipview/internal/tui"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	noColor   bool
	debugMode bool

	// Global config and logger
	cfg    *config.Config
	logger *slog.Logger

	// active receives reloaded playback settings
	active atomic.Pointer[session]
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipview",
	Short: "Watch Clipset videos from the terminal",
	Long: `clipview plays Clipset videos and playlists in mpv and turns the terminal
into the player controls: keyboard shortcuts, click to play, double-click
the sides to skip, comment markers and share links at the current time.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init and version work without a config
		if (cmd.Name() == "init" && cmd.Parent().Name() == "config") || cmd.Name() == "version" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var err error
		var v *viper.Viper
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debugMode {
			cfg.Advanced.Debug = true
			if logLevel == "" {
				cfg.Logging.Level = "debug"
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if noColor {
			cfg.Logging.Color = false
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Hot reload applies to the next video a session opens.
		if v.ConfigFileUsed() != "" {
			v.WatchConfig()
			v.OnConfigChange(func(e fsnotify.Event) {
				logger.Info("config file changed", "name", e.Name)
				var reloaded config.Config
				if err := v.Unmarshal(&reloaded); err != nil {
					logger.Error("failed to reload config", "error", err)
					return
				}
				if err := reloaded.Validate(); err != nil {
					logger.Error("ignoring invalid config", "error", err)
					return
				}
				if s := active.Load(); s != nil {
					s.updateSettings(reloaded.Playback)
				}
				logger.Info("playback settings reloaded", "skip_amount", reloaded.Playback.SkipAmount)
			})
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/clipview/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode (verbose HTTP and mpv logging)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(playlistCmd)
	rootCmd.AddCommand(markersCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clipview version %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

// configCmd handles configuration operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = filepath.Join(config.GetConfigDir(), "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s", configPath)
		}
		if err := config.SaveDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to save default configuration: %w", err)
		}

		fmt.Printf("Default configuration generated successfully at: %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.Server.Token != "" {
			shown.Server.Token = "********"
		}
		out, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			fmt.Println(cfgFile)
		} else {
			fmt.Println(filepath.Join(config.GetConfigDir(), "config.yaml"))
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <short-id|share-link|url>",
	Short: "Play a video",
	Long: `Play a Clipset video by short id or share link, or any media URL mpv can open.
Share links keep their start time, e.g. https://clips.example/v/abc123?t=83.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := source.ParseRef(cfg.Server.BaseURL, args[0])
		if err != nil {
			return err
		}

		start := ref.Start
		if s, _ := cmd.Flags().GetString("start"); s != "" {
			if start, err = timestamp.Parse(s); err != nil {
				return err
			}
		}
		autoplay := cfg.Playback.AutoPlay
		if cmd.Flags().Changed("autoplay") {
			autoplay, _ = cmd.Flags().GetBool("autoplay")
		}
		applyPlaybackFlags(cmd)

		ctx, stop := signalContext()
		defer stop()

		return runPlayer(ctx, nil, func(ctx context.Context, s *session) error {
			return s.openRef(ctx, ref, start, autoplay)
		})
	},
}

var playlistCmd = &cobra.Command{
	Use:   "playlist <short-id>",
	Short: "Play a playlist in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyPlaybackFlags(cmd)
		index, _ := cmd.Flags().GetInt("index")
		noAutoplay, _ := cmd.Flags().GetBool("no-autoplay")

		ctx, stop := signalContext()
		defer stop()

		resolver, err := source.NewFromConfig(cfg, logger)
		if err != nil {
			return err
		}
		playlist, err := resolver.Playlist(ctx, args[0])
		if err != nil {
			return err
		}
		items := queue.FromPlaylist(playlist)
		if len(items) == 0 {
			return fmt.Errorf("playlist %s is empty", playlist.Name)
		}
		logger.Info("playing playlist", "name", playlist.Name, "videos", len(items))

		build := func(s *session, bridge *tui.Bridge) *queue.Queue {
			return queue.New(items, s.openItem, queue.Options{
				AutoPlay:  !noAutoplay,
				Countdown: cfg.Playback.AutoPlayCountdown,
				Logger:    logger,
				OnChange:  bridge.QueueChanged,
			})
		}
		return runPlayer(ctx, build, func(ctx context.Context, s *session) error {
			s.mu.Lock()
			q := s.queue
			s.mu.Unlock()
			return q.Start(ctx, index, 0)
		})
	},
}

var markersCmd = &cobra.Command{
	Use:   "markers <short-id|share-link>",
	Short: "List the comment markers of a video with share links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := source.ParseRef(cfg.Server.BaseURL, args[0])
		if err != nil {
			return err
		}
		if ref.IsDirect() {
			return fmt.Errorf("%s is not a Clipset video", args[0])
		}

		ctx, stop := signalContext()
		defer stop()

		resolver, err := source.NewFromConfig(cfg, logger)
		if err != nil {
			return err
		}
		video, err := resolver.Video(ctx, ref.ShortID)
		if err != nil {
			return err
		}
		markers, err := resolver.Markers(ctx, video.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%d markers)\n", video.Title, len(markers))
		for _, m := range markers {
			link, err := timestamp.ShareURL(resolver.BaseURL(), ref.ShortID, m.At())
			if err != nil {
				return err
			}
			fmt.Printf("  %8s  %3d comment(s)  %s\n", timestamp.Format(m.At()), m.Count, link)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{playCmd, playlistCmd} {
		c.Flags().Duration("skip", 0, "double-click skip amount (overrides config)")
		c.Flags().Duration("hide-delay", 0, "controls auto-hide delay (overrides config)")
	}
	playCmd.Flags().StringP("start", "s", "", "start position, e.g. 83, 1:23 or 1m23s (overrides the link's t)")
	playCmd.Flags().Bool("autoplay", false, "start playing when ready (overrides config)")
	playlistCmd.Flags().IntP("index", "i", 0, "index of the first video, starting at 0")
	playlistCmd.Flags().Bool("no-autoplay", false, "do not advance to the next video automatically")
}

func applyPlaybackFlags(cmd *cobra.Command) {
	if d, _ := cmd.Flags().GetDuration("skip"); d > 0 {
		cfg.Playback.SkipAmount = d
	}
	if d, _ := cmd.Flags().GetDuration("hide-delay"); d > 0 {
		cfg.Playback.HideDelay = d
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runPlayer starts mpv and the overlay, opens the first video with start
// and blocks until the user quits
func runPlayer(
	ctx context.Context,
	buildQueue func(*session, *tui.Bridge) *queue.Queue,
	start func(context.Context, *session) error,
) error {
	resolver, err := source.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	element, err := mpv.NewWithConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	bridge := tui.NewBridge()
	s := newSession(element, resolver, bridge, cfg.Playback, logger)
	active.Store(s)
	defer func() {
		active.Store(nil)
		if err := s.close(); err != nil {
			logger.Warn("failed to close player", "error", err)
		}
	}()

	var q *queue.Queue
	if buildQueue != nil {
		q = buildQueue(s, bridge)
		s.setQueue(q)
	}

	model := tui.New(tui.Options{
		Queue:     q,
		Clipboard: clipboard.NewService(cfg, logger),
		ShareBase: cfg.Server.BaseURL,
		Bridge:    bridge,
		Logger:    logger,
	})

	openCtx, cancel := context.WithTimeout(ctx, time.Minute)
	err = start(openCtx, s)
	cancel()
	if err != nil {
		return err
	}
	return tui.Run(ctx, model)
}
