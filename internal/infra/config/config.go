package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Solana   SolanaConfig   `mapstructure:"solana"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	App      AppConfig      `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// SolanaConfig controls the balance source RPC endpoint.
type SolanaConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	RequestTimeout  int    `mapstructure:"request_timeout"` // seconds, per getBalance call
	MaxResponseSize int64  `mapstructure:"max_response_size"`
}

// MonitorConfig controls the periodic balance scan.
type MonitorConfig struct {
	CheckInterval int `mapstructure:"check_interval"` // seconds between scans
	Concurrency   int `mapstructure:"concurrency"`    // max in-flight fetches per scan
}

type AppConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	MetricsAddr string `mapstructure:"metrics_addr"` // empty disables the /metrics listener
}

// LoadConfig reads configuration once at process start.
// Precedence: flags > env > .env file > config.yaml > defaults.
func LoadConfig() (*Config, error) {
	// Best effort; a missing .env file is fine.
	godotenv.Load(".env")

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.ReadInConfig() // optional file, ignore the error

	v.AutomaticEnv()
	setupEnvAliases(v)
	setupFlags(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("telegram.bot_token", "BOT_TOKEN")
	v.BindEnv("solana.rpc_url", "SOLANA_RPC_URL")
	v.BindEnv("solana.request_timeout", "FETCH_TIMEOUT_SECONDS")
	v.BindEnv("solana.max_response_size", "MAX_RESPONSE_SIZE")
	v.BindEnv("monitor.check_interval", "CHECK_INTERVAL_SECONDS")
	v.BindEnv("monitor.concurrency", "SCAN_CONCURRENCY")
	v.BindEnv("app.data_dir", "DATA_DIR")
	v.BindEnv("app.metrics_addr", "METRICS_ADDR")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.request_timeout", 12)
	v.SetDefault("solana.max_response_size", 1024*1024) // 1MB, getBalance responses are tiny

	v.SetDefault("monitor.check_interval", 10)
	v.SetDefault("monitor.concurrency", 8)

	v.SetDefault("app.data_dir", "data")
	v.SetDefault("app.metrics_addr", "")
}

func setupFlags(v *viper.Viper) {
	if pflag.Lookup("telegram.bot_token") == nil {
		pflag.String("telegram.bot_token", "", "Telegram bot token (env: BOT_TOKEN)")
		pflag.String("solana.rpc_url", "https://api.mainnet-beta.solana.com", "Solana JSON-RPC endpoint (env: SOLANA_RPC_URL)")
		pflag.Int("solana.request_timeout", 12, "Per-call balance fetch timeout in seconds (env: FETCH_TIMEOUT_SECONDS)")
		pflag.Int64("solana.max_response_size", 1024*1024, "Max RPC response size in bytes (env: MAX_RESPONSE_SIZE)")
		pflag.Int("monitor.check_interval", 10, "Seconds between balance scans (env: CHECK_INTERVAL_SECONDS)")
		pflag.Int("monitor.concurrency", 8, "Max concurrent balance fetches per scan (env: SCAN_CONCURRENCY)")
		pflag.String("app.data_dir", "data", "Directory for the wallet registry file (env: DATA_DIR)")
		pflag.String("app.metrics_addr", "", "Listen address for /metrics, empty disables (env: METRICS_ADDR)")
	}

	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)
}

func validateConfig(cfg *Config) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (env: BOT_TOKEN)")
	}
	if cfg.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url cannot be empty")
	}
	if cfg.Monitor.CheckInterval <= 0 {
		return fmt.Errorf("monitor.check_interval must be positive, got %d", cfg.Monitor.CheckInterval)
	}
	if cfg.Monitor.Concurrency <= 0 {
		return fmt.Errorf("monitor.concurrency must be positive, got %d", cfg.Monitor.Concurrency)
	}
	return nil
}
