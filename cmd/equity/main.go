// The equity job runs at the end of each trading day. It snapshots
// account equity into the daily_equity table and sends a plaintext PnL
// summary with the last twenty days of equity.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/internal/database"
	"github.com/calebmsmith/vrpdesk/internal/gateway"
	"github.com/calebmsmith/vrpdesk/internal/notify"
	"github.com/calebmsmith/vrpdesk/models"
)

const historyDays = 20

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

	ctx := context.Background()
	gw := gateway.NewClient(cfg.Gateway)

	acct, err := gw.AccountSummary(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch account summary")
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	rec := models.EquityRecord{
		Timestamp:      time.Now().UTC(),
		NetLiquidation: acct.NetLiquidation,
		Realized:       acct.RealizedPnL,
		Unrealized:     acct.UnrealizedPnL,
	}
	if err := db.InsertEquity(rec); err != nil {
		log.Fatal().Err(err).Msg("Failed to record equity")
	}

	history, err := db.RecentEquity(historyDays)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read equity history")
	}

	body := summaryBody(rec, history)

	notifier, err := notify.NewTelegram(cfg.Telegram)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize notifier")
	} else if err := notifier.Send(ctx, body); err != nil {
		log.Error().Err(err).Msg("Equity notification failed")
	}

	log.Info().
		Float64("nlv", rec.NetLiquidation).
		Float64("realized", rec.Realized).
		Float64("unrealized", rec.Unrealized).
		Msg("Equity recorded")
}

func summaryBody(rec models.EquityRecord, history []models.EquityRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", rec.Timestamp.Format("2006-01-02"))
	fmt.Fprintf(&b, "NLV:  $%.0f\n", rec.NetLiquidation)
	fmt.Fprintf(&b, "Realized PnL today: $%.0f\n", rec.Realized)
	fmt.Fprintf(&b, "Unrealized PnL:    $%.0f\n\n", rec.Unrealized)
	fmt.Fprintf(&b, "Equity (last %dd):\n", historyDays)
	for _, h := range history {
		fmt.Fprintf(&b, "%s  %.0f\n", h.Timestamp.Format("2006-01-02"), h.NetLiquidation)
	}
	return b.String()
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
