package cmd

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gen2brain/beeep"
	"github.com/spf13/cobra"

	"codetime/internal/infrastructure/logging"
	"codetime/internal/services"
)

var trackNotify bool

var trackCmd = &cobra.Command{
	Use:   "track [dir...]",
	Short: "Watch directories and record coding sessions",
	Long: `track watches the given directories (default: the current
directory) for file writes and turns them into coding sessions. It
runs until interrupted; on shutdown all live sessions are flushed.`,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().BoolVar(&trackNotify, "notify", false, "show desktop notifications on session start and stop")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}

	roots := args
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		roots = []string{cwd}
	}

	if trackNotify {
		subscribeNotifications(application.Tracker().Notifier())
	}

	if err := application.Startup(context.Background()); err != nil {
		return err
	}

	watcher, err := newActivityWatcher(roots, application.Tracker(), application.Logger())
	if err != nil {
		application.Shutdown()
		return err
	}
	watcher.start()

	application.Logger().Info("Tracking started", "roots", len(roots))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	watcher.close()
	return application.Shutdown()
}

func subscribeNotifications(notifier *services.Notifier) {
	notifier.Subscribe(func(event services.Event, detail string) {
		switch event {
		case services.EventActivityStarted:
			beeep.Notify("codetime", "Coding session started", "")
		case services.EventActivityStopped:
			beeep.Notify("codetime", "Coding session ended", "")
		}
	})
}

// activityWatcher bridges filesystem events into the tracker. New
// directories are added to the watch set as they appear; fsnotify does
// not recurse on its own.
type activityWatcher struct {
	watcher *fsnotify.Watcher
	tracker *services.SessionTracker
	logger  logging.Logger
}

func newActivityWatcher(roots []string, tracker *services.SessionTracker, logger logging.Logger) (*activityWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &activityWatcher{watcher: watcher, tracker: tracker, logger: logger}
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *activityWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (name == ".git" || name == "node_modules" || name == "vendor") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *activityWatcher) start() {
	go w.run()
}

func (w *activityWatcher) close() {
	w.watcher.Close()
}

func (w *activityWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Filesystem watcher error", "error", err)
		}
	}
}

func (w *activityWatcher) handle(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
		w.tracker.OnActivity(event.Name, time.Now())
	}
}
