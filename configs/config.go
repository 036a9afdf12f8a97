package configs

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultDBHost = "cluster0.a46jnic.mongodb.net"

type Config struct {
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	MongoURI       string        `mapstructure:"mongo_uri" validate:"required"`
	DBUser         string        `mapstructure:"db_user"`
	DBPass         string        `mapstructure:"db_pass"`
	DBHost         string        `mapstructure:"db_host"`
	DBName         string        `mapstructure:"db_name" validate:"required"`
	JWTSecret      string        `mapstructure:"jwt_secret" validate:"required_if=AuthEnabled true"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl" validate:"gt=0"`
	AuthEnabled    bool          `mapstructure:"auth_enabled"`
	AdminEmails    []string      `mapstructure:"admin_emails" validate:"dive,email"`
	AdminPassword  string        `mapstructure:"admin_password" validate:"required_with=AdminEmails"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	AppEnv         string        `mapstructure:"app_env" validate:"oneof=development production test"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

var defaults = map[string]any{
	"port":            "5000",
	"mongo_uri":       "",
	"db_user":         "",
	"db_pass":         "",
	"db_host":         defaultDBHost,
	"db_name":         "IHP_INV",
	"jwt_secret":      "",
	"jwt_ttl":         "1h",
	"auth_enabled":    true,
	"admin_emails":    "",
	"admin_password":  "",
	"cors_origins":    "http://localhost:5173,https://ihp-inv.web.app",
	"log_level":       "info",
	"app_env":         "development",
	"request_timeout": "5s",
}

// LoadConfig reads .env (if any) and the process environment. Environment
// variables win over .env values since godotenv never overrides.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.AdminEmails = splitList(cfg.AdminEmails)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if cfg.MongoURI == "" && cfg.DBUser != "" {
		cfg.MongoURI = atlasURI(cfg.DBUser, cfg.DBPass, cfg.DBHost)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func atlasURI(user, pass, host string) string {
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(user, pass),
		Host:     host,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority",
	}
	return u.String()
}

// splitList normalises values that arrive either as one comma separated
// string or as an already split slice.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
