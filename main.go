package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"time"

	"fishtank/aquarium"
	"fishtank/config"
	"fishtank/database"
	"fishtank/game"
	"fishtank/imageprocessor"
	"fishtank/logging"
	"fishtank/server"
	"fishtank/signalhandler"
	"fishtank/utils"
	"fishtank/watcher"
)

func main() {
	// run owns all defers; they must complete before the process exits.
	os.Exit(run())
}

func run() int {
	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	// Parse command line arguments into a map
	args := utils.ParseArguments()

	if _, ok := args["help"]; ok {
		utils.PrintUsage()
		return 0
	}

	// Load configuration, falling back to built-in defaults
	var cfg *config.Config
	var err error
	if path, ok := args["config"]; ok && path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Printf("Error: failed to load config %s: %v\n", path, err)
			return 1
		}
	} else {
		cfg = config.Default()
	}

	// CLI overrides take precedence over the config file
	if photos, ok := args["photos"]; ok && photos != "" {
		cfg.PhotosDir = photos
	}
	if dbPath, ok := args["db"]; ok && dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if addr, ok := args["status-addr"]; ok && addr != "" {
		cfg.StatusAddr = addr
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: invalid configuration: %v\n", err)
		return 1
	}

	// Setup logging (debug flag raises the level)
	_, debugMode := args["debug"]
	logPath := "fishtank.log"
	if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
		logPath = customLogPath
	}
	if err := logging.Setup(logPath, debugMode); err != nil {
		fmt.Printf("Warning: failed to setup logging: %v\n", err)
	}
	defer logging.Close()

	slog.Info("main: starting",
		"photos", cfg.PhotosDir,
		"database", cfg.DatabasePath,
		"scenes", len(cfg.Scenes))

	// Open the photo catalog
	db, err := database.InitDatabase(cfg.DatabasePath)
	if err != nil {
		slog.Error("main: failed to initialize database", "error", err)
		return 1
	}
	defer db.Close()

	if stats, err := database.GetIngestStats(db); err == nil && stats.Total > 0 {
		slog.Info("main: catalog loaded",
			"accepted", stats.Accepted, "rejected", stats.Rejected)
	}

	// Watch the photo drop directory. The startup sweep re-emits every
	// photo already present so earlier fish repopulate the scenes.
	w := watcher.New(cfg.PhotosDir,
		time.Duration(cfg.Ingest.DebounceMs)*time.Millisecond,
		cfg.Ingest.QueueCapacity)
	if err := w.Start(); err != nil {
		slog.Error("main: failed to watch photo directory", "dir", cfg.PhotosDir, "error", err)
		return 1
	}
	defer w.Stop()

	// Extraction workers turn photos into sprites off the render thread
	workers := cfg.Extraction.Workers
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}
	extractor := imageprocessor.NewExtractor(cfg.Extraction)
	defer extractor.Close()

	pool := imageprocessor.NewPool(workers, extractor, db, w.Events())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	// Simulation state and the render loop
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	store := aquarium.NewStore(cfg.Scenes, cfg.Simulation,
		float64(cfg.Window.Width), float64(cfg.Window.Height), rng)

	g := game.New(cfg, store, pool.Sprites())

	// SIGINT/SIGTERM end the run loop so the deferred teardown runs
	signalhandler.SetupHandler(func() {
		slog.Info("main: shutdown signal received")
		g.RequestStop()
	})

	// Optional status API
	if cfg.StatusAddr != "" {
		api := server.New(cfg.StatusAddr, store, db, w.Dropped)
		api.Start()
		defer api.Stop()
	}

	// A graphics failure still tears everything down; only the exit
	// code distinguishes it from a clean quit.
	if err := g.Run(); err != nil {
		slog.Error("main: render loop failed", "error", err)
		return 1
	}

	slog.Info("main: shutting down")
	return 0
}
