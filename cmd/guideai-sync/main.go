// Command guideai-sync is the background service composition root:
// it constructs the event bus, catalog, canonical store, session
// watcher, and upload queue, wires the watcher's SessionChanged events
// into the upload queue's intake, and runs until SIGINT/SIGTERM,
// mirroring the teacher's service-lifecycle idiom (internal/mcpserver
// and internal/terminal both derive a cancellable context at
// construction and select on it for shutdown) combined with the
// signal-driven run loop the wider corpus uses for long-running
// servers (other_examples' molecula-shelley server.go: signal.Notify
// on SIGINT/SIGTERM, select against a server-error channel).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"guideai/internal/activitylog"
	"guideai/internal/catalog"
	"guideai/internal/config"
	"guideai/internal/eventbus"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
	"guideai/internal/uploadqueue"
	"guideai/internal/watcher"

	"github.com/rs/zerolog"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	backfill := flag.Bool("backfill", false, "run one immediate unconditional scan of every enabled provider before entering the poll loop")
	flag.Parse()

	if err := run(*debug, *backfill); err != nil {
		fmt.Fprintln(os.Stderr, "guideai-sync:", err)
		os.Exit(1)
	}
}

func run(debug, backfill bool) error {
	logsDir, err := config.LogsDir()
	if err != nil {
		return guideerr.Wrap(guideerr.KindConfig, "resolve logs directory", err)
	}
	logging.Init(logsDir, debug)
	log := logging.For("main")

	mgr, err := config.NewManager()
	if err != nil {
		return err
	}
	root := mgr.Get()
	if !mgr.IsAuthenticated() {
		log.Warn().Msg("not authenticated; sessions will be scanned and cached but nothing will upload")
	}

	sessionsRoot, err := config.SessionsRoot()
	if err != nil {
		return err
	}
	catalogPath, err := config.CatalogPath()
	if err != nil {
		return err
	}
	store, err := catalog.Open(catalogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := eventbus.New(eventbus.DefaultCapacity)
	defer bus.Shutdown()

	activityPath, err := config.ActivityLogPath()
	if err != nil {
		return err
	}
	activity, err := activitylog.Open(activityPath, activitylog.DefaultCapacity)
	if err != nil {
		return err
	}

	providerConfigs, err := loadProviderConfigs()
	if err != nil {
		return err
	}

	w := watcher.New(bus, store, sessionsRoot, watcher.DefaultPollInterval)
	for id, p := range watcher.NewDefaultProviders() {
		w.Register(p)
		log.Debug().Str("provider", id).Msg("registered watcher provider")
	}

	queue := uploadqueue.New(uploadqueue.Config{
		ServerURL: root.ServerURL,
		APIKey:    root.APIKey,
		Store:     store,
		Activity:  activity,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := bus.Subscribe()
	defer sub.Close()
	go bridgeEvents(ctx, sub, store, queue, activity, providerConfigs)

	go queue.Run(ctx, func(ctx context.Context) ([]uploadqueue.UploadItem, error) {
		return resyncFromCatalog(store, providerConfigs)
	})

	if backfill {
		log.Info().Msg("running historical backfill scan")
		w.Backfill(providerConfigs)
	}

	go w.Run(ctx, func() map[string]config.ProviderConfig { return providerConfigs })

	log.Info().Msg("guideai-sync started")
	waitForShutdown(log)
	cancel()
	return nil
}

func waitForShutdown(log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

// loadProviderConfigs loads every provider's on-disk settings document,
// keyed by provider ID, per spec §6's per-provider config file layout.
// A provider with no file gets the default config in memory; nothing
// is written to disk.
func loadProviderConfigs() (map[string]config.ProviderConfig, error) {
	defaults, err := config.LoadProviderDefaults()
	if err != nil {
		return nil, err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindConfig, "resolve home directory", err)
	}

	out := make(map[string]config.ProviderConfig, len(defaults))
	for _, d := range defaults {
		defaultHome := config.DefaultHomeDirectory(home, d.ID)
		pc, err := config.LoadProviderConfig(d.ID, defaultHome)
		if err != nil {
			return nil, err
		}
		out[d.ID] = pc
	}
	return out, nil
}

// bridgeEvents subscribes to the bus and enqueues an upload for every
// SessionChanged event, per spec §4.7's "On SessionChanged, the queue
// reads the referenced file... and enqueues an UploadItem." The sync
// mode comes from the provider's config, and the file hash and other
// session fields from the catalog's own row (already written by the
// watcher), since the bus payload carries only identity and path.
func bridgeEvents(ctx context.Context, sub *eventbus.Subscriber, store *catalog.Store, queue *uploadqueue.Queue, activity *activitylog.Log, providerConfigs map[string]config.ProviderConfig) {
	log := logging.For("event-bridge")
	for {
		env, ok := sub.Recv(ctx)
		if !ok {
			return
		}
		if env.Lag > 0 {
			log.Warn().Uint64("lag", env.Lag).Msg("event bus subscriber fell behind")
		}
		ev := env.Event
		if activity != nil {
			switch ev.Payload.Kind {
			case eventbus.KindSessionChanged:
				_ = activity.Append(activitylog.TypeSessionDiscovered, ev.Provider, "session changed: "+ev.Payload.SessionID, nil)
			case eventbus.KindFailed:
				_ = activity.Append(activitylog.TypeError, ev.Provider, ev.Payload.Reason, nil)
			}
		}
		if ev.Payload.Kind != eventbus.KindSessionChanged {
			continue
		}
		cfg, ok := providerConfigs[ev.Provider]
		if !ok || cfg.SyncMode == config.SyncNothing {
			continue
		}
		sess, err := store.GetByProviderAndSessionID(ev.Provider, ev.Payload.SessionID)
		if err != nil || sess == nil {
			log.Warn().Err(err).Str("provider", ev.Provider).Str("session_id", ev.Payload.SessionID).
				Msg("session changed but catalog lookup failed, skipping upload enqueue")
			continue
		}
		queue.Enqueue(uploadqueue.UploadItem{
			Provider:    sess.Provider,
			ProjectName: sess.ProjectName,
			SessionID:   sess.SessionID,
			SourcePath:  sess.FilePath,
			Cwd:         sess.Cwd,
			SyncMode:    cfg.SyncMode,
			FileSize:    sess.FileSize,
			FileHash:    sess.FileHash,
		})
	}
}

// resyncFromCatalog backs the upload queue's periodic self-healing
// poll (spec §4.7): any session the catalog still marks pending is
// re-offered, recovering from an event the bus dropped or a queue
// enqueue that raced a process restart.
func resyncFromCatalog(store *catalog.Store, providerConfigs map[string]config.ProviderConfig) ([]uploadqueue.UploadItem, error) {
	pending, err := store.ListByUploadStatus(catalog.UploadPending)
	if err != nil {
		return nil, err
	}
	var items []uploadqueue.UploadItem
	for _, sess := range pending {
		cfg, ok := providerConfigs[sess.Provider]
		if !ok || cfg.SyncMode == config.SyncNothing {
			continue
		}
		items = append(items, uploadqueue.UploadItem{
			Provider:    sess.Provider,
			ProjectName: sess.ProjectName,
			SessionID:   sess.SessionID,
			SourcePath:  sess.FilePath,
			Cwd:         sess.Cwd,
			SyncMode:    cfg.SyncMode,
			FileSize:    sess.FileSize,
			FileHash:    sess.FileHash,
		})
	}
	return items, nil
}
