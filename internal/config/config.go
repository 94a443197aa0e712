package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all bot settings. It is built once at process start and
// passed into every component constructor.
type Config struct {
	// Polymarket
	PrivateKey    string `json:"-"`
	FunderAddress string `json:"funder_address"`
	ClobHost      string `json:"clob_host"`
	GammaHost     string `json:"gamma_host"`
	ChainID       int64  `json:"chain_id"`

	// AI providers
	OpenAIAPIKey    string `json:"-"`
	AnthropicAPIKey string `json:"-"`

	// Trading
	TradingEnabled       bool    `json:"trading_enabled"`
	MaxPositionSize      float64 `json:"max_position_size"`
	MinConfidence        float64 `json:"min_confidence"`
	CheckIntervalMinutes int     `json:"check_interval_minutes"`

	// Market relevance filter
	BTCKeywords []string `json:"btc_keywords"`

	// Local state
	LogDir  string `json:"log_dir"`
	DataDir string `json:"data_dir"`
}

// DefaultConfig builds the configuration from defaults plus environment
// variables (a .env file is honored when present).
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ClobHost:  "https://clob.polymarket.com",
		GammaHost: "https://gamma-api.polymarket.com",
		ChainID:   137, // Polygon

		TradingEnabled:       false,
		MaxPositionSize:      25.0,
		MinConfidence:        0.7,
		CheckIntervalMinutes: 15,

		BTCKeywords: []string{
			"bitcoin", "btc", "btc price", "bitcoin price",
			"btc $", "bitcoin $", "btc above", "btc below",
			"bitcoin above", "bitcoin below",
		},

		LogDir:  filepath.Join(currentDir, "logs"),
		DataDir: filepath.Join(currentDir, "data"),
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("POLYGON_WALLET_PRIVATE_KEY"); val != "" {
		c.PrivateKey = val
	}
	if val := os.Getenv("POLYMARKET_FUNDER_ADDRESS"); val != "" {
		c.FunderAddress = val
	}
	if val := os.Getenv("POLYMARKET_CLOB_HOST"); val != "" {
		c.ClobHost = val
	}
	if val := os.Getenv("POLYMARKET_GAMMA_HOST"); val != "" {
		c.GammaHost = val
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("ANTHROPIC_API_KEY"); val != "" {
		c.AnthropicAPIKey = val
	}

	if val := os.Getenv("TRADING_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.TradingEnabled = enabled
		}
	}
	if val := os.Getenv("MAX_POSITION_SIZE"); val != "" {
		if size, err := strconv.ParseFloat(val, 64); err == nil {
			c.MaxPositionSize = size
		}
	}
	if val := os.Getenv("MIN_CONFIDENCE"); val != "" {
		if conf, err := strconv.ParseFloat(val, 64); err == nil {
			c.MinConfidence = conf
		}
	}
	if val := os.Getenv("CHECK_INTERVAL_MINUTES"); val != "" {
		if mins, err := strconv.Atoi(val); err == nil {
			c.CheckIntervalMinutes = mins
		}
	}

	if val := os.Getenv("BOT_LOG_DIR"); val != "" {
		c.LogDir = val
	}
	if val := os.Getenv("BOT_DATA_DIR"); val != "" {
		c.DataDir = val
	}
}

// Validate checks credentials needed for live trading. It returns a list of
// human-readable problems; an empty list means the config is complete.
func (c *Config) Validate() []string {
	var errs []string
	if c.PrivateKey == "" {
		errs = append(errs, "POLYGON_WALLET_PRIVATE_KEY is required")
	}
	if c.FunderAddress == "" {
		errs = append(errs, "POLYMARKET_FUNDER_ADDRESS is required")
	}
	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		errs = append(errs, "OPENAI_API_KEY or ANTHROPIC_API_KEY is required")
	}
	return errs
}

// EnsureDirectories creates the log and data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.LogDir, c.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
