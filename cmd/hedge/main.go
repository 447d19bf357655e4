// The hedge job runs twice weekly. It aggregates the option book's
// dollar-delta from live positions, sizes an offsetting futures order,
// sends it through the broker gateway, and logs the hedge.
package main

import (
	"context"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/internal/database"
	"github.com/calebmsmith/vrpdesk/internal/gateway"
	"github.com/calebmsmith/vrpdesk/internal/hedge"
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

	ctx := context.Background()
	gw := gateway.NewClient(cfg.Gateway)

	positions, err := gw.Positions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch positions")
	}

	deltaUSD := hedge.AggregateDeltaDollars(positions, cfg.Hedge.OptionMultiplier)
	if math.Abs(deltaUSD) < cfg.Hedge.FlatThresholdUSD {
		log.Info().Float64("delta_usd", deltaUSD).Msg("Book is flat, no hedge needed")
		return
	}

	spot, err := gw.SpotPrice(ctx, cfg.HedgeSymbol)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch hedge instrument spot")
	}

	qty, err := hedge.SizeHedge(deltaUSD, cfg.Hedge.ContractMultiplier, spot, cfg.Hedge.FlatThresholdUSD)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to size hedge")
	}
	if qty == 0 {
		log.Info().Float64("delta_usd", deltaUSD).Msg("Offset rounds below half a contract, no hedge sent")
		return
	}

	log.Info().Float64("delta_usd", deltaUSD).Int("quantity", qty).Str("symbol", cfg.HedgeSymbol).Msg("Sending hedge")

	if _, err := gw.PlaceMarketOrder(ctx, cfg.HedgeSymbol, qty); err != nil {
		log.Fatal().Err(err).Msg("Failed to place hedge order")
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	rec := models.HedgeRecord{
		Timestamp: time.Now().UTC(),
		Symbol:    cfg.HedgeSymbol,
		Quantity:  qty,
		DeltaUSD:  deltaUSD,
	}
	if err := db.InsertHedge(rec); err != nil {
		log.Fatal().Err(err).Msg("Failed to log hedge")
	}

	log.Info().Int("quantity", qty).Msg("Hedge submitted")
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
