package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DataDir         string        `mapstructure:"DATA_DIR"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	FreshdeskDomain string        `mapstructure:"FRESHDESK_DOMAIN"`
	FreshdeskAPIKey string        `mapstructure:"FRESHDESK_API_KEY"`
	PortalURL       string        `mapstructure:"FRESHDESK_PORTAL_URL"`
	FromDate        string        `mapstructure:"FROM_DATE"`
	ToDateEnd       string        `mapstructure:"TO_DATE_END"`
	MaxMonths       int           `mapstructure:"MAX_MONTHS"`
	UpdateDaysRange int           `mapstructure:"UPDATE_DAYS_RANGE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "4000")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_MONTHS", 36)
	v.SetDefault("UPDATE_DAYS_RANGE", 30)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
