package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPrimaryRPC      = "https://odyssey.ithaca.xyz"
	DefaultExpectedChainID = 911867
	// DefaultRetries applies when network.retries is absent; 0 disables retries.
	DefaultRetries = 2
)

// DefaultSecondaryRPCs are tried in order for the bridge source network.
var DefaultSecondaryRPCs = []string{
	"https://ethereum-sepolia.publicnode.com",
	"https://rpc.sepolia.org",
	"https://sepolia.gateway.tenderly.co",
	"https://1rpc.io/sepolia",
	"https://0xrpc.io/sep",
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Network struct {
		PrimaryRPC      []string      `yaml:"primary_rpc"`
		SecondaryRPC    []string      `yaml:"secondary_rpc"`
		ExpectedChainID uint64        `yaml:"expected_chain_id"`
		CallTimeout     time.Duration `yaml:"call_timeout"`
		Retries         int           `yaml:"retries"`
		RetryDelay      time.Duration `yaml:"retry_delay"`
		PollInterval    time.Duration `yaml:"poll_interval"`
		ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`
	} `yaml:"network"`
	Worker struct {
		KeysFile       string        `yaml:"keys_file"`
		BalanceRefresh time.Duration `yaml:"balance_refresh"`
		IdleWait       time.Duration `yaml:"idle_wait"`
		LogCapacity    int           `yaml:"log_capacity"`
		AutoStart      bool          `yaml:"auto_start"`
	} `yaml:"worker"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`

	// Run holds the defaults for every Start; hosts may override fields per start.
	Run Run `yaml:"run"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Pre-filled so that zero values written in the file (booleans, retries: 0)
	// are kept rather than replaced by defaults.
	cfg.Run = DefaultRun()
	cfg.Network.Retries = DefaultRetries

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("PRIMARY_RPC"); v != "" {
		cfg.Network.PrimaryRPC = splitList(v)
	}
	if v := os.Getenv("SECONDARY_RPC"); v != "" {
		cfg.Network.SecondaryRPC = splitList(v)
	}
	if v := os.Getenv("KEYS_FILE"); v != "" {
		cfg.Worker.KeysFile = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Network.PrimaryRPC) == 0 {
		c.Network.PrimaryRPC = []string{DefaultPrimaryRPC}
	}
	if len(c.Network.SecondaryRPC) == 0 {
		c.Network.SecondaryRPC = append([]string(nil), DefaultSecondaryRPCs...)
	}
	if c.Network.ExpectedChainID == 0 {
		c.Network.ExpectedChainID = DefaultExpectedChainID
	}
	if c.Network.CallTimeout == 0 {
		c.Network.CallTimeout = 12 * time.Second
	}
	if c.Network.RetryDelay == 0 {
		c.Network.RetryDelay = time.Second
	}
	if c.Network.PollInterval == 0 {
		c.Network.PollInterval = 2 * time.Second
	}
	if c.Network.ConfirmTimeout == 0 {
		c.Network.ConfirmTimeout = 3 * time.Minute
	}
	if c.Worker.KeysFile == "" {
		c.Worker.KeysFile = "private.txt"
	}
	if c.Worker.BalanceRefresh == 0 {
		c.Worker.BalanceRefresh = 10 * time.Second
	}
	if c.Worker.IdleWait == 0 {
		c.Worker.IdleWait = 300 * time.Millisecond
	}
	if c.Worker.LogCapacity == 0 {
		c.Worker.LogCapacity = 200
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8787"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Run.Mode == "" {
		c.Run.Mode = DefaultRun().Mode
	}
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks process-level settings. Run settings are validated again
// on every start since hosts may override them.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if len(c.Network.PrimaryRPC) == 0 {
		return fmt.Errorf("network.primary_rpc is required")
	}
	if c.Network.CallTimeout < 0 || c.Network.RetryDelay < 0 || c.Network.PollInterval < 0 || c.Network.ConfirmTimeout < 0 {
		return fmt.Errorf("network timeouts must not be negative")
	}
	if c.Network.Retries < 0 {
		return fmt.Errorf("network.retries must not be negative")
	}
	if c.Worker.BalanceRefresh < time.Second {
		return fmt.Errorf("worker.balance_refresh must be at least 1s")
	}
	if c.Worker.LogCapacity < 0 {
		return fmt.Errorf("worker.log_capacity must not be negative")
	}
	if _, err := c.Run.Resolve(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
