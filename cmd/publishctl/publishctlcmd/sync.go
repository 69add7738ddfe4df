package publishctlcmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/publisher-tools/publisher"
	"github.com/publisher-tools/publisher/manifest"
	"github.com/publisher-tools/publisher/runner"
)

var (
	syncOpt = struct {
		Schedule string
	}{}

	syncCmd = cobra.Command{
		Use:   "sync",
		Short: "Re-apply every manifest on a schedule and on manifest changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, cfg, err := newReconciler(runner.OS{})
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), rec, cfg.AppsDir)
		},
	}
)

func init() {
	syncCmd.Flags().StringVar(&syncOpt.Schedule, "schedule", "@every 10m", "Cron schedule for full re-applies")
}

// runSync applies every manifest once, then keeps the host converged: a
// cron tick re-applies everything, a manifest file change re-applies that
// application. Applies are serialized under one mutex, so two triggers can
// never converge the same application concurrently.
func runSync(ctx context.Context, rec *publisher.Reconciler, appsDir string) error {
	var mu sync.Mutex

	applyOne := func(m *manifest.Manifest) {
		mu.Lock()
		defer mu.Unlock()
		if _, err := rec.ApplyManifest(ctx, m); err != nil {
			zap.L().Error("apply failed", zap.String("app", m.Name), zap.Error(err))
		}
	}
	applyAll := func() {
		manifests, err := manifest.LoadDir(appsDir)
		if err != nil {
			zap.L().Error("loading manifests", zap.Error(err))
			return
		}
		for _, m := range manifests {
			applyOne(m)
		}
	}

	applyAll()

	c := cron.New()
	if _, err := c.AddFunc(syncOpt.Schedule, applyAll); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(appsDir); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sigs:
			zap.L().Info("shutting down", zap.Stringer("signal", sig))
			return nil
		case err := <-watcher.Errors:
			zap.L().Warn("watch error", zap.Error(err))
		case ev := <-watcher.Events:
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isManifestFile(ev.Name) {
				continue
			}
			m, err := manifest.Load(ev.Name)
			if err != nil {
				zap.L().Error("loading changed manifest", zap.String("path", ev.Name), zap.Error(err))
				continue
			}
			zap.L().Info("manifest changed", zap.String("app", m.Name))
			applyOne(m)
		}
	}
}

func isManifestFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}
