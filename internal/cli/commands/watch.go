package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leakguard-dev/leakguard/internal/cli/config"
	"github.com/leakguard-dev/leakguard/internal/report"
)

// debounceWindow coalesces bursts of filesystem events (editors often write
// a file several times in quick succession).
const debounceWindow = 500 * time.Millisecond

// NewWatchCommand creates the watch command: re-audit whenever the training
// file changes.
func NewWatchCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the audit whenever the training file changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Train == "" {
				return fmt.Errorf("--train is required")
			}
			return runWatch(cmd, cfg)
		},
	}
	addDataFlags(cmd)
	cmd.Flags().String("cv", "", "declared CV strategy: kfold, timeseries, group")
	cmd.Flags().Bool("simulate", false, "run the leak simulation on each change")
	return cmd
}

func runWatch(cmd *cobra.Command, cfg *config.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: many tools replace files via rename, which
	// drops a watch set on the file itself.
	dir := filepath.Dir(cfg.Train)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(cfg.Train)

	auditOnce := func() {
		res, err := executeAudit(cmd.Context(), cfg)
		if err != nil {
			var ee *ExitError
			if errors.As(err, &ee) && ee.Msg != "" {
				slog.Warn("audit failed", "err", ee.Msg)
			} else {
				slog.Warn("audit failed", "err", err)
			}
			return
		}
		if err := report.WriteText(cmd.OutOrStdout(), res); err != nil {
			slog.Warn("render failed", "err", err)
		}
	}

	slog.Info("watching", "path", cfg.Train)
	auditOnce()

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			slog.Info("change detected, re-auditing", "path", cfg.Train)
			auditOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		}
	}
}
