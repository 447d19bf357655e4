// The signal job runs once before market open. It reads the latest
// market snapshots, computes the VRP entry signal, and publishes it to
// the single-slot signal file consumed by the trade job.
package main

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/internal/database"
	"github.com/calebmsmith/vrpdesk/internal/signal"
	"github.com/calebmsmith/vrpdesk/models"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyLogLevel(cfg.LogLevel)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	now := time.Now()

	chain, err := db.OptionsChain(cfg.Symbol, now)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read options snapshot")
	}
	underlying, err := db.UnderlyingSeries(cfg.Symbol, cfg.Signal.RealizedWindow+1)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read underlying series")
	}
	vix, err := db.VixCurve(cfg.Signal.VixMedianWindow)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read vix curve")
	}

	engine := signal.NewEngine(cfg.Signal)
	rec, err := engine.Compute(signal.SnapshotData{
		Options:    chain,
		Underlying: underlying,
		Vix:        vix,
	}, now)
	if err != nil {
		// Not enough history or a one-sided ATM market: no signal today.
		// The slot keeps its previous record, which the trade job will
		// reject as stale.
		if errors.Is(err, models.ErrInsufficientData) || errors.Is(err, models.ErrQuoteUnavailable) {
			log.Warn().Err(err).Msg("No signal produced")
			return
		}
		log.Fatal().Err(err).Msg("Signal computation failed")
	}

	slot := signal.Slot{Path: cfg.SignalPath}
	if err := slot.Write(rec); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish signal")
	}
	if err := db.InsertSignal(rec); err != nil {
		log.Fatal().Err(err).Msg("Failed to record signal history")
	}

	log.Info().Bool("enter_trade", rec.EnterTrade).Str("path", cfg.SignalPath).Msg("Signal published")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func applyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
