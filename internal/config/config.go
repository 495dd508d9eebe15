// Package config
package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
binance_api_key: "..."
binance_api_secret: "..."
binance_base_url: "https://demo-fapi.binance.com"
groq_api_key: "..."
groq_model: "llama-3.3-70b-versatile"
telegram_token: "..."
telegram_chat_id: "..."
listen_addr: ":8080"
skip_confirm: false
confirm_ttl: 5m
request_timeout: 15s
symbol_rules:
  - symbol: BTCUSDT
    quantity_step: "0.001"
    quantity_decimals: 3
    min_notional: "100"
*/

// Duration parses yaml values like "5m" or "15s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type SymbolRule struct {
	Symbol           string `yaml:"symbol"`
	QuantityStep     string `yaml:"quantity_step"`
	QuantityDecimals int32  `yaml:"quantity_decimals"`
	MinNotional      string `yaml:"min_notional"`
}

type Config struct {
	BinanceAPIKey    string       `yaml:"binance_api_key"`
	BinanceAPISecret string       `yaml:"binance_api_secret"`
	BinanceBaseURL   string       `yaml:"binance_base_url"`
	GroqAPIKey       string       `yaml:"groq_api_key"`
	GroqModel        string       `yaml:"groq_model"`
	TelegramToken    string       `yaml:"telegram_token"`
	TelegramChatID   string       `yaml:"telegram_chat_id"`
	ListenAddr       string       `yaml:"listen_addr"`
	SkipConfirm      bool         `yaml:"skip_confirm"`
	ConfirmTTL       Duration     `yaml:"confirm_ttl"`
	RequestTimeout   Duration     `yaml:"request_timeout"`
	SymbolRules      []SymbolRule `yaml:"symbol_rules"`

	NotificationRetries int      `yaml:"notification_retries"`
	NotificationDelay   Duration `yaml:"notification_delay"`

	// CLI-only fields.
	Mode        string `yaml:"-"`
	Symbol      string `yaml:"-"`
	Side        string `yaml:"-"`
	Type        string `yaml:"-"`
	Quantity    string `yaml:"-"`
	Price       string `yaml:"-"`
	Notional    string `yaml:"-"`
	TimeInForce string `yaml:"-"`
	DryRun      bool   `yaml:"-"`
}

func MustLoadConfig() Config {
	// .env in the working directory carries BINANCE_* and GROQ_* keys.
	_ = godotenv.Load()

	mode := flag.String("mode", "order", "Mode: order, chat, run-bot, or serve")
	symbol := flag.String("symbol", "", "Trading symbol (e.g., BTCUSDT)")
	side := flag.String("side", "", "Order side: BUY or SELL")
	orderType := flag.String("type", "", "Order type: MARKET or LIMIT")
	quantity := flag.String("quantity", "", "Order quantity in base asset")
	notional := flag.String("notional", "", "Order size in USDT (alternative to -quantity)")
	price := flag.String("price", "", "Limit price (required for LIMIT)")
	tif := flag.String("time-in-force", "", "GTC, IOC, or FOK for LIMIT orders")
	skipConfirm := flag.Bool("skip-confirm", false, "Submit CLI orders without the confirmation prompt")
	confirmTTL := flag.Duration("confirm-ttl", 0, "Pending confirmation expiry (0 disables)")
	requestTimeout := flag.Duration("request-timeout", 15*time.Second, "Per-request exchange timeout")
	listenAddr := flag.String("listen", ":8080", "HTTP listen address for -mode serve")
	baseURL := flag.String("base-url", "", "Exchange base URL (defaults to the futures testnet)")
	groqModel := flag.String("groq-model", "", "Groq model name")
	notificationRetries := flag.Int("notification-retries", 3, "Number of notification send attempts")
	notificationDelay := flag.Duration("notification-delay", 5*time.Second, "Delay between notification retries")
	dryRun := flag.Bool("dry-run", false, "Use the in-memory mock exchange instead of the testnet")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg := Config{
		ListenAddr:          *listenAddr,
		SkipConfirm:         *skipConfirm,
		ConfirmTTL:          Duration(*confirmTTL),
		RequestTimeout:      Duration(*requestTimeout),
		BinanceBaseURL:      *baseURL,
		GroqModel:           *groqModel,
		NotificationRetries: *notificationRetries,
		NotificationDelay:   Duration(*notificationDelay),
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Failed to parse config file: %v", err)
		}
	}

	if cfg.BinanceAPIKey == "" {
		cfg.BinanceAPIKey = os.Getenv("BINANCE_API_KEY")
	}
	if cfg.BinanceAPISecret == "" {
		cfg.BinanceAPISecret = os.Getenv("BINANCE_API_SECRET")
	}
	if cfg.BinanceBaseURL == "" {
		cfg.BinanceBaseURL = os.Getenv("BINANCE_BASE_URL")
	}
	if cfg.GroqAPIKey == "" {
		cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	}
	if cfg.TelegramChatID == "" {
		cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}

	cfg.Mode = *mode
	cfg.Symbol = *symbol
	cfg.Side = *side
	cfg.Type = *orderType
	cfg.Quantity = *quantity
	cfg.Price = *price
	cfg.Notional = *notional
	cfg.TimeInForce = *tif
	cfg.DryRun = *dryRun

	return cfg
}
