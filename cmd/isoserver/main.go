package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/api"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/archive"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/config"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/httpclient"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/observability"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/server"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/isocache"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/loadevents"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/logger"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/manager"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/quantize"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer/styledoc"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// local overrides only; a missing .env is fine
	_ = godotenv.Load()

	cfg := config.FromEnv()
	session := cfg.SessionID
	if session == "" {
		session = logger.NewID()
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "isoserver",
		Session:   session,
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting isoserver",
		"addr", cfg.Addr,
		"version", Version,
		"archive_base", cfg.ArchiveBaseURL,
		"region", cfg.ArchiveRegion,
		"quantize", cfg.QuantizeMode,
		"store", cfg.CacheStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaultCenter := model.Location{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng}
	resolver := archive.NewResolver(cfg.ArchiveBaseURL,
		archive.DefaultRegion(cfg.ArchiveRegion, defaultCenter))

	var quant quantize.Quantizer
	switch cfg.QuantizeMode {
	case "h3":
		quant = quantize.NewH3(cfg.QuantizeH3Res)
	default:
		quant = quantize.NewDecimal(cfg.QuantizePrecision)
	}

	var store isocache.Store
	switch cfg.CacheStore {
	case "redis":
		rs, err := isocache.NewRedisStore(ctx, cfg.RedisAddr, session)
		if err != nil {
			appLog.Error("redis store init failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer rs.Close()
		store = rs
	default:
		store = isocache.NewMemoryStore()
	}

	doc := styledoc.New(appLog,
		styledoc.WithProbeClient(httpclient.NewOutbound(10*time.Second)),
		styledoc.WithProbeCacheSize(cfg.ProbeCacheSize))

	bands := make([]model.Band, 0, len(cfg.TimeBands))
	for _, b := range cfg.TimeBands {
		bands = append(bands, model.Band(b))
	}

	var opts []manager.Option
	if cfg.Kafka.Enabled {
		pub, err := loadevents.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Queue, appLog)
		if err != nil {
			appLog.Warn("load event publisher disabled", "brokers", cfg.Kafka.Brokers, "err", err)
		} else {
			defer pub.Close()
			opts = append(opts, manager.WithEvents(pub))
		}
	}

	mgr := manager.New(manager.Config{
		Bands:             bands,
		SourceLoadTimeout: cfg.SourceLoadTimeout,
		DefaultZoom:       cfg.DefaultZoom,
	}, doc, resolver, quant, store, appLog, opts...)
	mgr.SetCurrentLocation(defaultCenter)

	handler := api.New(appLog, mgr, doc)

	if err := server.Run(ctx, cfg, appLog, handler, alwaysReady{}); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

type alwaysReady struct{}

func (alwaysReady) Ready() bool { return true }
