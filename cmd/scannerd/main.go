package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/searchlight-sar/scanner/internal/alert"
	"github.com/searchlight-sar/scanner/internal/config"
	"github.com/searchlight-sar/scanner/internal/detect"
	"github.com/searchlight-sar/scanner/internal/gps"
	"github.com/searchlight-sar/scanner/internal/logger"
	"github.com/searchlight-sar/scanner/internal/metrics"
	"github.com/searchlight-sar/scanner/internal/priority"
	"github.com/searchlight-sar/scanner/internal/saver"
)

var (
	// Command-line flags
	settingsPath   = flag.String("settings", envOr("SCANNER_SETTINGS", "settings.json"), "Settings file path")
	httpAddr       = flag.String("http", envOr("SCANNER_HTTP", ":8081"), "Control API address")
	metricsAddr    = flag.String("metrics", envOr("SCANNER_METRICS", ":9090"), "Metrics server address")
	soundDefault   = flag.String("sound-default", "sounds/beep.mp3", "Default alert sound")
	soundPowerline = flag.String("sound-powerline", "sounds/alarm.mp3", "Powerline alert sound")
	playerCmd      = flag.String("player", "mpg123", "Sound player command")
	mockFeed       = flag.Bool("mock", false, "Feed the pipeline from a synthetic detector")
	logLevel       = flag.String("log-level", envOr("SCANNER_LOG_LEVEL", "info"), "Log level (debug, info, warn, error, silent)")
	logColor       = flag.Bool("log-color", true, "Enable colored log output")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Console bundles every long-lived component of the scanner daemon.
type Console struct {
	cfg        *config.Store
	metrics    *metrics.Metrics
	engine     *gps.Engine
	scheduler  *saver.Scheduler
	dispatcher *alert.Dispatcher
	processor  *detect.Processor
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func main() {
	// .env overrides must land before flag defaults are read.
	_ = godotenv.Load()
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Searchlight scanner console starting...")

	console, err := NewConsole()
	if err != nil {
		log.Fatalf("Failed to build console: %v", err)
	}

	console.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Main", "Shutting down...")
	console.Shutdown()
	logger.Info("Main", "Console stopped")
}

// NewConsole constructs and wires every component from the settings file.
func NewConsole() (*Console, error) {
	cfg, err := config.Load(*settingsPath)
	if err != nil {
		return nil, err
	}
	if cfg.SaveDir() == "" {
		log.Fatalf("image_save_dir is not configured in %s; there is no sane default", *settingsPath)
	}
	if err := os.MkdirAll(cfg.SaveDir(), 0755); err != nil {
		log.Fatalf("Failed to create save directory: %v", err)
	}

	m := metrics.New()

	// GPS hardware is optional in the field; run degraded without it.
	device, err := gps.OpenSerial(
		cfg.String("gps_name", config.DefaultGPSName),
		cfg.Int("gps_baud_rate", config.DefaultGPSBaudRate),
	)
	if err != nil {
		logger.Warn("Main", "%v", err)
		device = nil
	}
	engine := gps.NewEngine(device, gps.DefaultPollInterval, m)

	ranks := priority.NewRanks(cfg.Ranks())
	cfg.OnRanksChange(ranks.Replace)

	scheduler := saver.NewScheduler(saver.NewQueue(), ranks, cfg, m)

	sounder := alert.NewSounder(
		&alert.ExecPlayer{Command: *playerCmd},
		alert.Sounds{Default: *soundDefault, Powerline: *soundPowerline},
		m,
	)
	led, err := alert.OpenLED(
		cfg.String("led_name", config.DefaultLEDName),
		cfg.Int("led_baud_rate", config.DefaultLEDBaudRate),
		time.Duration(cfg.Float("led_light_duration", config.DefaultLEDDuration)*float64(time.Second)),
	)
	if err != nil {
		logger.Warn("Main", "LED disabled: %v", err)
	}
	dispatcher := alert.NewDispatcher(sounder, led)

	ctx, cancel := context.WithCancel(context.Background())
	console := &Console{
		cfg:        cfg,
		metrics:    m,
		engine:     engine,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
	}

	if *mockFeed {
		console.processor = detect.NewProcessor(
			newMockDetector(), engine, scheduler, dispatcher, cfg.CategoryThresholds())
	}

	console.httpServer = &http.Server{
		Addr:    *httpAddr,
		Handler: console.routes(),
	}
	return console, nil
}

// Start brings up every worker and server.
func (c *Console) Start() {
	c.engine.Start()
	c.dispatcher.Start()
	c.scheduler.Start()

	go func() {
		logger.Info("Main", "Metrics server on %s", *metricsAddr)
		if err := c.metrics.StartServer(*metricsAddr); err != nil {
			logger.Error("Main", "Metrics server: %v", err)
		}
	}()

	go func() {
		logger.Info("Main", "Control API on %s", *httpAddr)
		if err := c.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Main", "Control API: %v", err)
		}
	}()

	if c.processor != nil {
		c.wg.Add(1)
		go c.runMockFeed()
	}
}

// Shutdown stops every component, joining each worker before return.
func (c *Console) Shutdown() {
	c.cancel()
	c.wg.Wait()

	c.scheduler.Stop()
	c.engine.Stop()
	c.dispatcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Main", "Control API shutdown: %v", err)
	}
}

// runMockFeed drives the pipeline from the synthetic detector.
func (c *Console) runMockFeed() {
	defer c.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.processor.ProcessFrame(newMockFrame()); err != nil {
				logger.Warn("Main", "Mock frame: %v", err)
			}
		}
	}
}

// routes builds the control API with CORS and request logging middleware.
func (c *Console) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", c.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", c.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/config/ranks", c.handleGetRanks).Methods(http.MethodGet)
	r.HandleFunc("/config/ranks", c.handleSetRanks).Methods(http.MethodPost)

	cors := handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(os.Stdout, cors(r))
}

func (c *Console) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, _, err := c.engine.Coordinates()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"gps_fix": err == nil,
	})
}

func (c *Console) handleStatus(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"frames_enqueued":  c.metrics.FramesEnqueued.Load(),
		"images_saved":     c.metrics.ImagesSaved.Load(),
		"save_errors":      c.metrics.SaveErrors.Load(),
		"current_shard":    c.metrics.CurrentShard.Load(),
		"queue_depth":      c.metrics.QueueDepth.Load(),
		"gps_fixes":        c.metrics.GPSFixes.Load(),
		"gps_parse_errors": c.metrics.GPSParseErrors.Load(),
		"alerts":           c.metrics.AlertsDispatched.Load(),
	})
}

func (c *Console) handleGetRanks(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(c.cfg.Ranks())
}

func (c *Console) handleSetRanks(w http.ResponseWriter, r *http.Request) {
	var ranks map[string]int
	if err := json.NewDecoder(r.Body).Decode(&ranks); err != nil {
		http.Error(w, "invalid rank map: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := c.cfg.SetRanks(ranks); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "ranks": ranks})
}
