package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	LogLevel   string `mapstructure:"log_level"`
	Secret     string `mapstructure:"secret"`

	APIKey        string `mapstructure:"api_key"`
	APIBaseURL    string `mapstructure:"api_base_url"`
	UploadBaseURL string `mapstructure:"upload_base_url"`
	SocketBaseURL string `mapstructure:"socket_base_url"`

	Quality    string   `mapstructure:"quality"`
	AvatarID   string   `mapstructure:"avatar_id"`
	VoiceID    string   `mapstructure:"voice_id"`
	Language   string   `mapstructure:"language"`
	ICEServers []string `mapstructure:"ice_servers"`
	TrickleICE bool     `mapstructure:"trickle_ice"`

	VoiceChatSettleDelay time.Duration `mapstructure:"voice_chat_settle_delay"`

	TokenRateLimit    int           `mapstructure:"token_rate_limit"`
	TokenRateInterval time.Duration `mapstructure:"token_rate_interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults.
// AVATAR_* environment variables override file values.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("AVATAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "")
	v.SetDefault("api_key", "")
	v.SetDefault("api_base_url", "https://api.heygen.com")
	v.SetDefault("upload_base_url", "https://upload.heygen.com")
	v.SetDefault("socket_base_url", "wss://api.heygen.com")
	v.SetDefault("quality", "medium")
	v.SetDefault("avatar_id", "")
	v.SetDefault("voice_id", "")
	v.SetDefault("language", "")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("trickle_ice", false)
	v.SetDefault("voice_chat_settle_delay", "2s")
	v.SetDefault("token_rate_limit", 5)
	v.SetDefault("token_rate_interval", "1m")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}
