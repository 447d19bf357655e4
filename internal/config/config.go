package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration. It is built once at
// process start and passed by parameter; nothing reads it through
// package globals.
type Config struct {
	Symbol      string       `yaml:"symbol"`
	HedgeSymbol string       `yaml:"hedge_symbol"`
	SignalPath  string       `yaml:"signal_path"`
	LogLevel    string       `yaml:"log_level"`
	Signal      SignalConfig `yaml:"signal"`
	Sizing      SizingConfig `yaml:"sizing"`
	Hedge       HedgeConfig  `yaml:"hedge"`
	Gateway     GatewayConfig
	Database    DatabaseConfig
	Telegram    TelegramConfig
}

// SignalConfig tunes the volatility signal engine.
type SignalConfig struct {
	RealizedWindow  int     `yaml:"realized_window"`
	VixMedianWindow int     `yaml:"vix_median_window"`
	VixMinHistory   int     `yaml:"vix_min_history"`
	StdMultiplier   float64 `yaml:"std_multiplier"`
	FrontContract   string  `yaml:"front_contract"`
	MaxSignalAgeH   int     `yaml:"max_signal_age_hours"`
}

// MaxSignalAge is how old a signal record may be before the trade job
// refuses to act on it.
func (c SignalConfig) MaxSignalAge() time.Duration {
	return time.Duration(c.MaxSignalAgeH) * time.Hour
}

// SizingConfig tunes position sizing and bracket construction.
type SizingConfig struct {
	MaxMarginPct     float64 `yaml:"max_margin_pct"`
	MarginMultiplier float64 `yaml:"margin_multiplier"`
	StrikeOffsetPct  float64 `yaml:"strike_offset_pct"`
	StrikeRound      float64 `yaml:"strike_round"`
	Tick             float64 `yaml:"tick"`
	TargetDTE        int     `yaml:"target_dte"`
	EntryWeekday     int     `yaml:"entry_weekday"`
	EntryWindowStart string  `yaml:"entry_window_start"`
	EntryWindowEnd   string  `yaml:"entry_window_end"`
}

// HedgeConfig tunes the delta-hedge job.
type HedgeConfig struct {
	ContractMultiplier float64 `yaml:"contract_multiplier"`
	OptionMultiplier   float64 `yaml:"option_multiplier"`
	FlatThresholdUSD   float64 `yaml:"flat_threshold_usd"`
}

// GatewayConfig locates the broker gateway bridge. The address comes from
// the environment so the same config file works for paper and live.
type GatewayConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerSec int
}

// DatabaseConfig holds Postgres connection parameters, environment-only.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TelegramConfig holds notification credentials. Both empty means
// notifications are skipped.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// Load reads the yaml config file at path, applies defaults, overlays
// environment secrets, and validates. A missing or malformed required
// value is a startup failure.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	gatewayTimeout, err := getEnvIntWithDefault("GATEWAY_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	gatewayRPS, err := getEnvIntWithDefault("GATEWAY_RPS", 5)
	if err != nil {
		return nil, err
	}
	cfg.Gateway = GatewayConfig{
		BaseURL:        getEnvWithDefault("GATEWAY_URL", "http://127.0.0.1:5000"),
		RequestTimeout: time.Duration(gatewayTimeout) * time.Second,
		RequestsPerSec: gatewayRPS,
	}
	cfg.Database = DatabaseConfig{
		Host:     getEnvWithDefault("DB_HOST", "127.0.0.1"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnvWithDefault("DB_NAME", "vrpdesk"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}
	chatID, err := getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	cfg.Telegram = TelegramConfig{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:   chatID,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Symbol:      "SPX",
		HedgeSymbol: "MES",
		SignalPath:  "signals/latest_signal.json",
		LogLevel:    "info",
		Signal: SignalConfig{
			RealizedWindow:  20,
			VixMedianWindow: 252,
			VixMinHistory:   20,
			StdMultiplier:   1.0,
			FrontContract:   "VX",
			MaxSignalAgeH:   24,
		},
		Sizing: SizingConfig{
			MaxMarginPct:     0.10,
			MarginMultiplier: 50,
			StrikeOffsetPct:  0.10,
			StrikeRound:      10,
			Tick:             0.05,
			TargetDTE:        30,
			EntryWeekday:     int(time.Monday),
			EntryWindowStart: "09:45",
			EntryWindowEnd:   "10:15",
		},
		Hedge: HedgeConfig{
			ContractMultiplier: 5,
			OptionMultiplier:   100,
			FlatThresholdUSD:   1,
		},
	}
}

func (c *Config) validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol must not be empty")
	}
	if c.Signal.RealizedWindow < 2 {
		return fmt.Errorf("config: signal.realized_window must be >= 2, got %d", c.Signal.RealizedWindow)
	}
	if c.Signal.VixMedianWindow < 1 {
		return fmt.Errorf("config: signal.vix_median_window must be >= 1, got %d", c.Signal.VixMedianWindow)
	}
	if c.Signal.MaxSignalAgeH < 1 {
		return fmt.Errorf("config: signal.max_signal_age_hours must be >= 1, got %d", c.Signal.MaxSignalAgeH)
	}
	if c.Signal.StdMultiplier < 0 {
		return fmt.Errorf("config: signal.std_multiplier must not be negative, got %g", c.Signal.StdMultiplier)
	}
	if c.Sizing.MaxMarginPct <= 0 || c.Sizing.MaxMarginPct > 1 {
		return fmt.Errorf("config: sizing.max_margin_pct must be in (0,1], got %g", c.Sizing.MaxMarginPct)
	}
	if c.Sizing.MarginMultiplier <= 0 {
		return fmt.Errorf("config: sizing.margin_multiplier must be positive, got %g", c.Sizing.MarginMultiplier)
	}
	if c.Sizing.Tick <= 0 {
		return fmt.Errorf("config: sizing.tick must be positive, got %g", c.Sizing.Tick)
	}
	if c.Sizing.StrikeRound <= 0 {
		return fmt.Errorf("config: sizing.strike_round must be positive, got %g", c.Sizing.StrikeRound)
	}
	start, err := parseClock(c.Sizing.EntryWindowStart)
	if err != nil {
		return fmt.Errorf("config: sizing.entry_window_start: %w", err)
	}
	end, err := parseClock(c.Sizing.EntryWindowEnd)
	if err != nil {
		return fmt.Errorf("config: sizing.entry_window_end: %w", err)
	}
	if start > end {
		return fmt.Errorf("config: sizing.entry_window_start %q is after entry_window_end %q",
			c.Sizing.EntryWindowStart, c.Sizing.EntryWindowEnd)
	}
	if c.Sizing.EntryWeekday < 0 || c.Sizing.EntryWeekday > 6 {
		return fmt.Errorf("config: sizing.entry_weekday must be 0-6, got %d", c.Sizing.EntryWeekday)
	}
	if c.Hedge.ContractMultiplier <= 0 {
		return fmt.Errorf("config: hedge.contract_multiplier must be positive, got %g", c.Hedge.ContractMultiplier)
	}
	if c.Hedge.OptionMultiplier <= 0 {
		return fmt.Errorf("config: hedge.option_multiplier must be positive, got %g", c.Hedge.OptionMultiplier)
	}
	return nil
}

// EntryWindow returns the configured entry window as minutes since
// midnight. Validation guarantees both bounds parse.
func (c SizingConfig) EntryWindow() (start, end int) {
	start, _ = parseClock(c.EntryWindowStart)
	end, _ = parseClock(c.EntryWindowEnd)
	return start, end
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// A set but malformed value is a startup failure, never a silent
// fallback to the default.
func getEnvIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, value)
	}
	return intValue, nil
}

func getEnvInt64WithDefault(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, value)
	}
	return intValue, nil
}
