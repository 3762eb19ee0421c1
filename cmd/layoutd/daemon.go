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

	"layoutd/internal/cache"
	"layoutd/internal/classifier"
	"layoutd/internal/config"
	"layoutd/internal/dict"
	"layoutd/internal/engine"
	"layoutd/internal/ipc"
	"layoutd/internal/keyboard"
	"layoutd/internal/layout"
	"layoutd/internal/learning"
	"layoutd/internal/logging"
	"layoutd/internal/metrics"
	"layoutd/internal/rules"
	"layoutd/internal/scheduler"
	"layoutd/internal/segmenter"
)

// daemon owns every long-lived component and implements ipc.Daemon.
type daemon struct {
	cfg       *config.Config
	loader    *config.Loader
	log       *slog.Logger
	metrics   *metrics.Registry
	startedAt time.Time
	enabled   atomic.Bool

	capture   keyboard.Capture
	switcher  keyboard.Switcher
	engine    *engine.Engine
	store     *learning.Store
	db        *learning.SQLitePersistence
	sched     *scheduler.Scheduler
	sweeper   *cache.Sweeper
	ipcServer *ipc.Server

	oracle   *dict.CachedOracle
	registry *layout.Registry

	dictCache   *cache.Cache[string, bool]
	sugCache    *cache.Cache[string, []string]
	neuralCache *cache.Cache[string, dict.NeuralResult]
}

func newDaemon(cfg *config.Config, loader *config.Loader, fakeInput bool) (*daemon, error) {
	log, err := logging.Setup(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	d := &daemon{
		cfg:       cfg,
		loader:    loader,
		log:       log,
		metrics:   metrics.NewRegistry(),
		startedAt: time.Now(),
	}
	d.enabled.Store(true)

	// Caches and their sweeper.
	d.dictCache = cache.New[string, bool]("dictionary",
		cfg.Cache.Dictionary.MaxSize, time.Duration(cfg.Cache.Dictionary.TTLSeconds)*time.Second)
	d.sugCache = cache.New[string, []string]("suggestions",
		cfg.Cache.Suggestions.MaxSize, time.Duration(cfg.Cache.Suggestions.TTLSeconds)*time.Second)
	d.neuralCache = cache.New[string, dict.NeuralResult]("neural",
		cfg.Cache.Neural.MaxSize, time.Duration(cfg.Cache.Neural.TTLSeconds)*time.Second)

	d.sweeper = cache.NewSweeper(time.Duration(cfg.Cache.SweepSeconds) * time.Second)
	d.sweeper.Register(d.dictCache)
	d.sweeper.Register(d.sugCache)
	d.sweeper.Register(d.neuralCache)

	// Classifier tables, extended by user rule files.
	tables := classifier.NewTables()
	if len(cfg.Rules.Paths) > 0 {
		loader, err := rules.NewLoader()
		if err != nil {
			return nil, fmt.Errorf("rules loader: %w", err)
		}
		if err := loader.LoadAll(tables, cfg.Rules.Paths); err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}

	// Dictionary oracle backed by on-disk wordlists.
	oracle := dict.NewWordlistOracle()
	wordlistDir := cfg.Classifier.WordlistDir
	if wordlistDir == "" {
		wordlistDir = filepath.Join(config.Dir(), "wordlists")
	}
	for lang, name := range map[layout.Language]string{
		layout.LangEnglish: "en.txt",
		layout.LangRussian: "ru.txt",
	} {
		path := filepath.Join(wordlistDir, name)
		if err := oracle.LoadFile(lang, path); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load wordlist %s: %w", path, err)
			}
			log.Warn("wordlist missing, dictionary signal degraded",
				"lang", lang, "path", path)
		}
	}

	oracleTimeout := time.Duration(cfg.Classifier.OracleTimeoutMS) * time.Millisecond
	cachedOracle := dict.NewCachedOracle(oracle, d.dictCache, d.sugCache, oracleTimeout)
	cachedNeural := dict.NewCachedNeural(dict.NewCharModel(), d.neuralCache, oracleTimeout)
	d.oracle = cachedOracle

	// Learning store over SQLite.
	db, err := learning.OpenSQLite(cfg.Learning.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open learning database: %w", err)
	}
	d.db = db

	learnCfg := learning.DefaultConfig()
	learnCfg.DecayRate = cfg.Learning.DecayRate
	learnCfg.Staleness = time.Duration(cfg.Learning.StalenessDays) * 24 * time.Hour
	learnCfg.MaxContextPatterns = cfg.Learning.MaxContextPatterns
	learnCfg.PersistInterval = time.Duration(cfg.Learning.PersistMinutes) * time.Minute
	d.store = learning.NewStore(learnCfg, db, log)
	d.store.LoadPersisted()

	// Classifier.
	clsCfg := classifier.DefaultConfig()
	clsCfg.EnableKnownWords = cfg.Classifier.EnableKnownWords
	clsCfg.EnablePatterns = cfg.Classifier.EnablePatterns
	clsCfg.EnableOracle = cfg.Classifier.EnableOracle
	clsCfg.EnableLearned = cfg.Classifier.EnableLearned
	clsCfg.EnableNgram = cfg.Classifier.EnableNgram
	clsCfg.EnableNeural = cfg.Classifier.EnableNeural
	clsCfg.EnableContext = cfg.Classifier.EnableContext
	clsCfg.RepeatThreshold = cfg.Classifier.RepeatThreshold
	clsCfg.NeuralFloor = cfg.Classifier.NeuralFloor

	sentences := classifier.NewSentenceTracker()
	cls := classifier.New(clsCfg, tables, cachedOracle, cachedNeural, d.store, sentences, log)

	// Platform input and switching, with fakes for development.
	if fakeInput {
		d.capture = keyboard.NewFakeCapture()
		d.switcher = keyboard.NewFakeSwitcher(layout.LangEnglish, layout.LangEnglish, layout.LangRussian)
		log.Info("using fake input and switcher")
	} else {
		d.capture = keyboard.NewPlatformCapture()
		if d.capture == nil {
			return nil, fmt.Errorf("no keyboard capture on this platform (try -fake-input)")
		}
		if ok, reason := d.capture.Available(); !ok {
			return nil, fmt.Errorf("keyboard capture unavailable: %s", reason)
		}
		sw, err := keyboard.NewPlatformSwitcher(cfg.Keyboard.Engines)
		if err != nil {
			return nil, fmt.Errorf("layout switcher: %w", err)
		}
		d.switcher = keyboard.NewRetrySwitcher(sw, cfg.Engine.SwitchRetryAttempts, 50*time.Millisecond)
	}

	d.sched = scheduler.New(scheduler.Config{
		HighWorkers:   cfg.Scheduler.HighWorkers,
		NormalWorkers: cfg.Scheduler.NormalWorkers,
		LowWorkers:    cfg.Scheduler.LowWorkers,
		QueueDepth:    cfg.Scheduler.QueueDepth,
	})

	seg := segmenter.New(segmenter.Config{
		MaxWordLength: cfg.Segmenter.MaxWordLength,
		MaxHistory:    cfg.Segmenter.MaxHistory,
	})

	d.registry = layout.NewRegistry()
	d.engine = engine.New(engineConfig(cfg), engine.Deps{
		Registry:   d.registry,
		Segmenter:  seg,
		Classifier: cls,
		Switcher:   d.switcher,
		Corrector:  engine.NopCorrector{},
		Learning:   d.store,
		Scheduler:  d.sched,
		Log:        log,
	})

	if cfg.IPC.Enabled {
		srv := ipc.NewServer(ipc.ServerConfig{
			SocketPath:   cfg.IPC.SocketPath,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Second,
		}, d.countingHandler(ipc.NewHandler(d)), log)
		d.ipcServer = srv
	}

	if d.loader != nil {
		d.loader.OnChange(d.applyConfig)
	}

	return d, nil
}

// engineConfig maps the config surface onto engine thresholds.
func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		MinWordLength:     cfg.Engine.MinWordLength,
		ConfidenceShort:   cfg.Engine.ConfidenceShort,
		ConfidenceLong:    cfg.Engine.ConfidenceLong,
		SuppressionWindow: cfg.SuppressionWindow(),
		SuppressionWords:  cfg.Engine.SuppressionWords,
		MaxRecursionDepth: cfg.Engine.MaxRecursionDepth,
	}
}

// applyConfig picks up the hot-reloadable subset of a changed config
// file: engine thresholds. Everything else takes effect on restart.
func (d *daemon) applyConfig(cfg *config.Config) {
	d.engine.Reconfigure(engineConfig(cfg))
	d.metrics.Counter("config.reloads").Inc()
	d.log.Info("configuration reloaded")
}

// drainConfigErrors surfaces failed reloads; the old config stays active.
func (d *daemon) drainConfigErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-d.loader.Errors():
			if !ok {
				return
			}
			d.log.Warn("config reload failed, keeping previous config", "error", err)
		}
	}
}

// countingHandler wraps the command dispatcher with request counters.
func (d *daemon) countingHandler(inner ipc.Handler) ipc.Handler {
	return ipc.HandlerFunc(func(ctx context.Context, req *ipc.Request) *ipc.Response {
		d.metrics.Counter("ipc.requests").Inc()
		resp := inner.Handle(ctx, req)
		if resp != nil && !resp.OK {
			d.metrics.Counter("ipc.errors").Inc()
		}
		return resp
	})
}

// run starts everything and blocks until SIGINT/SIGTERM.
func (d *daemon) run() error {
	defer logging.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.sched.Start(ctx)
	d.sweeper.Start(ctx)
	go d.store.Run(ctx)

	if err := d.capture.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	if d.ipcServer != nil {
		if err := d.ipcServer.Start(); err != nil {
			return fmt.Errorf("start ipc server: %w", err)
		}
	}

	if d.loader != nil {
		if err := d.loader.Watch(); err != nil {
			d.log.Warn("config watch unavailable", "error", err)
		} else {
			go d.drainConfigErrors(ctx)
		}
	}

	go d.engine.Run(ctx, d.capture.Events())

	d.log.Info("layoutd running",
		"version", version,
		"pid", os.Getpid(),
		"db", d.cfg.Learning.DatabasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	d.log.Info("shutting down", "signal", sig.String())

	cancel()

	if d.ipcServer != nil {
		if err := d.ipcServer.Stop(); err != nil {
			d.log.Warn("ipc shutdown failed", "error", err)
		}
	}
	if err := d.capture.Stop(); err != nil {
		d.log.Warn("capture stop failed", "error", err)
	}
	if d.loader != nil {
		if err := d.loader.Close(); err != nil {
			d.log.Warn("config watcher close failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := d.sched.Shutdown(shutdownCtx); err != nil {
		d.log.Warn("scheduler shutdown timed out", "error", err)
	}
	d.sweeper.Stop()

	if err := d.store.Flush(); err != nil {
		d.log.Error("final learning flush failed", "error", err)
	}
	if err := d.db.Close(); err != nil {
		d.log.Warn("database close failed", "error", err)
	}

	d.log.Info("layoutd stopped")
	return nil
}

// Status implements ipc.Daemon.
func (d *daemon) Status() ipc.StatusData {
	current := "unknown"
	if lang, err := d.switcher.Current(); err == nil {
		current = lang.String()
	}
	return ipc.StatusData{
		Version:     version,
		PID:         os.Getpid(),
		StartedAt:   d.startedAt,
		Enabled:     d.enabled.Load(),
		EngineState: d.engine.State().String(),
		Layout:      current,
	}
}

// Stats implements ipc.Daemon.
func (d *daemon) Stats() ipc.StatsData {
	es := d.engine.Stats()
	ls := d.store.Stats()

	var caches []ipc.CacheStats
	for _, cs := range d.sweeper.StatsAll() {
		caches = append(caches, ipc.CacheStats{
			Name:      cs.Name,
			Size:      cs.Size,
			Hits:      cs.Hits,
			Misses:    cs.Misses,
			Evictions: cs.Evictions,
			Expired:   cs.Expired,
			HitRate:   cs.HitRate(),
		})
	}

	snap := d.metrics.Snapshot()
	return ipc.StatsData{
		WordsProcessed:  es.WordsProcessed,
		Corrections:     es.Switches,
		Rejections:      es.Rejections,
		Suppressed:      es.Suppressed,
		SwitchFailures:  es.SwitchFailures,
		RecursionAborts: es.RecursionAborts,
		LearnedWords:    ls.Words,
		Caches:          caches,
		Counters:        snap.Counters,
		Gauges:          snap.Gauges,
	}
}

// Flush implements ipc.Daemon.
func (d *daemon) Flush() error {
	return d.store.Flush()
}

// Suggest implements ipc.Daemon: the renderings previously chosen for
// the word, then near-miss dictionary words per installed language.
func (d *daemon) Suggest(ctx context.Context, word string) (ipc.SuggestData, error) {
	data := ipc.SuggestData{
		Word:       word,
		Selections: d.store.Selections(word),
	}
	for _, lang := range d.registry.Languages() {
		words, err := d.oracle.Suggestions(ctx, word, lang)
		if err != nil || len(words) == 0 {
			continue
		}
		if data.Suggestions == nil {
			data.Suggestions = make(map[string][]string)
		}
		data.Suggestions[lang.String()] = words
	}
	return data, nil
}

// SetEnabled implements ipc.Daemon. Disabling pauses capture, so no
// events reach the engine and no corrections happen.
func (d *daemon) SetEnabled(enabled bool) {
	was := d.enabled.Swap(enabled)
	if was == enabled {
		return
	}
	if enabled {
		d.capture.Resume()
		d.log.Info("correction enabled")
	} else {
		d.capture.Pause()
		d.log.Info("correction disabled")
	}
}
