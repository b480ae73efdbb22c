package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"preflight/internal/gitx"
	"preflight/internal/manifest"
	"preflight/internal/report"
	"preflight/internal/unit"
	"preflight/internal/verifier"
)

// watchDebounce coalesces the event bursts editors produce on save.
const watchDebounce = 500 * time.Millisecond

// watchCmd re-verifies whenever the manifest changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run check-only verification whenever the manifest changes",
	Long: `Watches the manifest file and re-runs a check-only verification on every
change. Never remediates; use 'preflight verify' for that. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := manifest.Resolve(manifestPath, workspace)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save and
	// a watch on the old inode would go stale.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	logger.Info("watching manifest", zap.String("path", path))
	watchVerify(cmd.Context(), path)

	return watchLoop(cmd.Context(), watcher, path, watchDebounce, func() {
		watchVerify(cmd.Context(), path)
	})
}

// watchLoop dispatches debounced manifest-change events to onChange until
// ctx is cancelled or the watcher closes.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration, onChange func()) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

// watchVerify runs one check-only pass and renders it. Failures are
// reported, never fatal: the watcher keeps running so the operator can fix
// the manifest and save again.
func watchVerify(ctx context.Context, path string) {
	m, units, err := loadUnits(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return
	}

	engine := verifier.New(gitx.New(logger), logger)
	rep, err := engine.Verify(ctx, units, verifier.Options{
		AllowRemediation: false,
		Jobs:             m.Defaults.Jobs,
		UnitTimeout:      m.GetTimeout(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return
	}

	fmt.Printf("--- %s\n", time.Now().Format(time.TimeOnly))
	report.Render(os.Stdout, rep, report.RenderOptions{
		Color: !noColor && isatty.IsTerminal(os.Stdout.Fd()),
		Hint: func(u unit.ContentUnit) string {
			return "preflight verify " + u.Name
		},
	})
}
