// The trade job runs at the Monday entry window. It acts only when the
// signal slot holds a fresh enter_trade signal, sizes a 30-DTE short
// strangle against account risk capacity, submits the bracket through
// the broker gateway, and logs the trade only after the venue accepted
// all three legs.
package main

import (
	"context"
	"errors"
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
	"github.com/calebmsmith/vrpdesk/internal/signal"
	"github.com/calebmsmith/vrpdesk/internal/sizing"
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

	now := time.Now()
	engine := sizing.NewEngine(cfg.Symbol, cfg.Sizing)

	slot := signal.Slot{Path: cfg.SignalPath}
	sig, ok, err := slot.Read(now, cfg.Signal.MaxSignalAge())
	if err != nil {
		if errors.Is(err, models.ErrStaleSignal) {
			log.Warn().Err(err).Msg("No trade today, signal is stale")
			return
		}
		log.Fatal().Err(err).Msg("Failed to read signal slot")
	}
	if !ok {
		log.Info().Msg("No trade today, no signal on file")
		return
	}
	if !sig.EnterTrade {
		log.Info().Msg("No trade today, signal says stay out")
		return
	}
	if !engine.InEntryWindow(now) {
		log.Info().Time("now", now).Msg("No trade today, outside entry window")
		return
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	gw := gateway.NewClient(cfg.Gateway)

	acct, err := gw.AccountSummary(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch account summary")
	}
	spot, err := gw.SpotPrice(ctx, cfg.Symbol)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch spot price")
	}

	expiry := sizing.TargetExpiry(now, cfg.Sizing.TargetDTE)
	plan, err := engine.Plan(sig, acct, spot, expiry, func(strike float64, right models.OptionRight) (models.OptionQuote, error) {
		return gw.OptionQuote(ctx, cfg.Symbol, expiry, strike, right)
	})
	if err != nil {
		if errors.Is(err, models.ErrQuoteUnavailable) {
			log.Warn().Err(err).Msg("No trade today, required strikes are not quoted")
			return
		}
		log.Fatal().Err(err).Msg("Failed to build order plan")
	}

	orderIDs, err := gw.PlaceBracket(ctx, *plan)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to place bracket")
	}

	// Only a venue-acknowledged trade is logged.
	trade := models.TradeRecord{
		Timestamp:  now.UTC(),
		CallStrike: plan.CallStrike,
		PutStrike:  plan.PutStrike,
		Quantity:   plan.Contracts,
		Credit:     plan.Credit,
		TakeProfit: plan.TakeProfit,
		StopLoss:   plan.StopLoss,
		OrderIDs:   formatOrderIDs(orderIDs),
		Status:     "submitted",
	}
	if err := db.InsertTrade(trade); err != nil {
		log.Fatal().Err(err).Msg("Failed to log trade")
	}

	notifier, err := notify.NewTelegram(cfg.Telegram)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize notifier")
	} else {
		summary := fmt.Sprintf(
			"Strangle submitted: %dx %s %s\nCall %.0f / Put %.0f\nCredit %.2f, TP %.2f, SL %.2f\nOrders %s",
			plan.Contracts, plan.Symbol, plan.Expiry.Format("2006-01-02"),
			plan.CallStrike, plan.PutStrike,
			plan.Credit, plan.TakeProfit, plan.StopLoss,
			trade.OrderIDs,
		)
		if err := notifier.Send(ctx, summary); err != nil {
			log.Error().Err(err).Msg("Trade notification failed")
		}
	}

	log.Info().Str("order_ids", trade.OrderIDs).Msg("Trade submitted")
}

func formatOrderIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
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
