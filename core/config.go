package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
		Path          string // sqlite only
	}

	UploadConfig struct {
		Dir     string
		BaseURL string
		MaxSize int64
	}

	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		SchoolTimezone   string
		WizardConfigPath string // empty: embedded default

		Server   ServerConfig
		Database DatabaseConfig
		Uploads  UploadConfig

		defaultFromEmail string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SchoolTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig reads the configuration from env vars prefixed with $ENV (eg. DEV_DEBUG=false),
// optionally loaded from config/.env.<env>.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "BER Guardian")
	v.SetDefault("secretKey", "x8l!q-2v@u1^dfsk3#t=wv7m$ga%0c4yq(kr_b9z*hpj6n+e")
	v.SetDefault("defaultFromEmail", "BER Guardian System <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("schoolTimezone", "America/Los_Angeles")
	v.SetDefault("wizardConfigPath", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbUser", "berguardian")
	v.SetDefault("dbPassword", "berguardian")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbName", "berguardian")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("dbPath", "berguardian.db")

	v.SetDefault("uploadsDir", "uploads")
	v.SetDefault("uploadsBaseURL", "http://localhost:8000/media")
	v.SetDefault("uploadsMaxSize", int64(20<<20))

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		SchoolTimezone:   v.GetString("schoolTimezone"),
		WizardConfigPath: v.GetString("wizardConfigPath"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Name:          v.GetString("dbName"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
		},
		Uploads: UploadConfig{
			Dir:     v.GetString("uploadsDir"),
			BaseURL: strings.TrimSuffix(v.GetString("uploadsBaseURL"), "/"),
			MaxSize: v.GetInt64("uploadsMaxSize"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
	if conf.TestMode {
		conf.Debug = false
	}
	return conf
}

// NewTestConfig returns a Config suitable for tests, without touching the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:             "TEST",
		Build:           "test",
		TestMode:        true,
		AppName:         "BER Guardian",
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:3000",
		SchoolTimezone:  "UTC",
		Server: ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Database: DatabaseConfig{Engine: "sqlite", Path: ":memory:"},
		Uploads:  UploadConfig{Dir: os.TempDir(), BaseURL: "http://localhost:8000/media", MaxSize: 1 << 20},

		defaultFromEmail: "BER Guardian System <noreply@test.test>",
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s(%s) env=%s debug=%t db=%s", c.AppName, c.Build, c.Env, c.Debug, c.Database.Engine)
}
