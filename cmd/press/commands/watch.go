package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/press/pkg/config"
)

func newWatchCommand() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch [script]",
		Short: "Rebuild whenever input files or the script change",
		Long: `Build once, then watch the root folder and the configuration script and
rebuild after changes settle. Each rebuild uses a fresh engine.

When metrics are enabled in the settings, the metrics endpoint stays up for
the lifetime of the command.`,
		Example: `  # Watch the current folder
  press watch

  # Watch with a script and a longer settle delay
  press watch config.star --delay 1s`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}

			tel, err := newTelemetry(s)
			if err != nil {
				return err
			}
			defer func() { _ = tel.Shutdown(context.Background()) }()
			if err := tel.StartMetricsServer(); err != nil {
				return err
			}

			w := &watcher{
				settings: s,
				script:   scriptArg(s, args),
				delay:    delay,
				rebuild: func(ctx context.Context, s *config.Settings, script string) {
					report, err := runBuild(ctx, s, script, tel)
					if report != nil {
						_ = writeReport(cmd.OutOrStdout(), report)
					}
					if err != nil {
						log.Error().Err(err).Msg("Build failed")
					}
				},
			}
			return w.run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 300*time.Millisecond, "time to wait for changes to settle")

	return cmd
}

// watcher rebuilds after file system changes, debounced by delay.
type watcher struct {
	settings *config.Settings
	script   string
	delay    time.Duration
	rebuild  func(ctx context.Context, s *config.Settings, script string)

	fsw *fsnotify.Watcher
}

func (w *watcher) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	if err := w.watchTree(w.settings.RootFolder); err != nil {
		return err
	}
	if w.script != "" {
		dir := filepath.Dir(w.script)
		if err := fsw.Add(dir); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to watch script folder")
		}
	}

	log.Info().Str("root", w.settings.RootFolder).Msg("Watching for changes")
	w.rebuild(ctx, w.settings, w.script)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watchTree(event.Name); err != nil {
						log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new folder")
					}
				}
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			settle = time.After(w.delay)

		case <-settle:
			settle = nil
			w.rebuild(ctx, w.settings, w.script)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// watchTree adds dir and every non-hidden folder below it.
func (w *watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// relevant filters out chmod-only events and hidden entries such as editor
// swap files or the .press history folder.
func (w *watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return !hidden(event.Name)
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
