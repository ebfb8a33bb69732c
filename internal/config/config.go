package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MoonLamp/internal/device"
)

// Config holds all application configuration.
type Config struct {
	Device     device.Settings `yaml:"device"`
	DataSource struct {
		Provider   string        `yaml:"provider"` // coingecko, yahoo or mock
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Symbol     string        `yaml:"symbol"`
		VsCurrency string        `yaml:"vs_currency"`
		Timeout    time.Duration `yaml:"timeout"`
		MockPrice  float64       `yaml:"mock_price"`
	} `yaml:"data_source"`
	History struct {
		RetentionMinutes int `yaml:"retention_minutes"`
	} `yaml:"history"`
	Serial struct {
		Port        string        `yaml:"port"`
		BaudRate    int           `yaml:"baud_rate"`
		SettleDelay time.Duration `yaml:"settle_delay"`
	} `yaml:"serial"`
	MQTT struct {
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"client_id"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath    string `yaml:"sqlite_path"`
		RetentionDays int    `yaml:"retention_days"`
		PurgeCron     string `yaml:"purge_cron"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads a .env file if present, then the YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{Device: device.DefaultSettings()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("WIFI_SSID"); v != "" {
		cfg.Device.WiFiSSID = v
	}
	if v := os.Getenv("WIFI_PASSWORD"); v != "" {
		cfg.Device.WiFiPassword = v
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"CHECK_INTERVAL", &cfg.Device.CheckIntervalMs},
		{"PRICE_HISTORY_MINUTES", &cfg.Device.PriceHistoryMinutes},
		{"BAUD_RATE", &cfg.Serial.BaudRate},
	}
	for _, i := range ints {
		if err := envInt(i.env, i.dst); err != nil {
			return err
		}
	}

	pins := []struct {
		env string
		dst *device.Pin
	}{
		{"RED_PIN", &cfg.Device.RedPin},
		{"GREEN_PIN", &cfg.Device.GreenPin},
		{"BLUE_PIN", &cfg.Device.BluePin},
	}
	for _, p := range pins {
		n := int(*p.dst)
		if err := envInt(p.env, &n); err != nil {
			return err
		}
		*p.dst = device.Pin(n)
	}

	brightness := int(cfg.Device.LEDBrightness)
	if err := envInt("LED_BRIGHTNESS", &brightness); err != nil {
		return err
	}
	cfg.Device.LEDBrightness = device.Brightness(brightness)

	strs := []struct {
		env string
		dst *string
	}{
		{"DATA_PROVIDER", &cfg.DataSource.Provider},
		{"COINGECKO_API_KEY", &cfg.DataSource.APIKey},
		{"PRICE_SYMBOL", &cfg.DataSource.Symbol},
		{"SERIAL_PORT", &cfg.Serial.Port},
		{"MQTT_BROKER", &cfg.MQTT.Broker},
		{"MQTT_USERNAME", &cfg.MQTT.Username},
		{"MQTT_PASSWORD", &cfg.MQTT.Password},
		{"TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID},
		{"SQLITE_PATH", &cfg.Database.SQLitePath},
		{"HTTP_ADDR", &cfg.HTTP.Addr},
		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FORMAT", &cfg.Logging.Format},
		{"HTTPS_PROXY", &cfg.Proxy},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "coingecko"
	}
	if cfg.DataSource.BaseURL == "" && cfg.DataSource.Provider == "coingecko" {
		cfg.DataSource.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.DataSource.Symbol == "" {
		cfg.DataSource.Symbol = "ethereum"
	}
	if cfg.DataSource.VsCurrency == "" {
		cfg.DataSource.VsCurrency = "usd"
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 10 * time.Second
	}
	if cfg.DataSource.MockPrice == 0 {
		cfg.DataSource.MockPrice = 3000
	}
	if cfg.History.RetentionMinutes == 0 {
		cfg.History.RetentionMinutes = 20
	}
	if cfg.Serial.BaudRate == 0 {
		cfg.Serial.BaudRate = 115200
	}
	if cfg.Serial.SettleDelay == 0 {
		cfg.Serial.SettleDelay = 2 * time.Second
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "moonlamp-host"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "moonlamp"
	}
	if cfg.Database.RetentionDays == 0 {
		cfg.Database.RetentionDays = 7
	}
	if cfg.Database.PurgeCron == "" {
		cfg.Database.PurgeCron = "0 0 3 * * *"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if err := c.Device.Validate(); err != nil {
		return err
	}
	switch c.DataSource.Provider {
	case "coingecko", "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.Symbol == "" {
		return fmt.Errorf("data_source.symbol is required")
	}
	if c.History.RetentionMinutes < c.Device.PriceHistoryMinutes {
		return fmt.Errorf("history.retention_minutes (%d) must cover price_history_minutes (%d)",
			c.History.RetentionMinutes, c.Device.PriceHistoryMinutes)
	}
	if c.Serial.Port == "" && c.MQTT.Broker == "" {
		return fmt.Errorf("one of serial.port or mqtt.broker is required")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// HistoryRetention is how long price samples stay in memory.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.History.RetentionMinutes) * time.Minute
}

// StorageRetention is how long ticks stay in the database.
func (c *Config) StorageRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}
