package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Handoff store backends.
const (
	HandoffStoreMemory   = "memory"
	HandoffStoreRedis    = "redis"
	HandoffStorePostgres = "postgres"
)

type (
	ServiceConfig struct {
		BaseURL string
		Timeout time.Duration // zero means no timeout
	}

	ServerConfig struct {
		Address         string
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		ViewTTL         time.Duration // idle views are closed after this; zero keeps them
		DisableReqLogs  bool
	}

	HandoffConfig struct {
		Store string
		TTL   time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	DatabaseConfig struct {
		Engine        string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	ExportConfig struct {
		Dir string
	}

	Config struct {
		Debug        bool
		TestMode     bool
		Env          string
		Build        string
		AppName      string
		WorkDir      string
		RollbarToken string

		Service  ServiceConfig
		Server   ServerConfig
		Handoff  HandoffConfig
		Redis    RedisConfig
		Database DatabaseConfig
		Export   ExportConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the app configuration from the environment, optionally seeded by `config/.env.<env>`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Ratiba")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("service.baseURL", "http://127.0.0.1:5000")
	conf.SetDefault("service.timeout", time.Duration(0))
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.viewTTL", 30*time.Minute)
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("handoff.store", HandoffStoreMemory)
	conf.SetDefault("handoff.ttl", 30*time.Minute)
	conf.SetDefault("redis.addr", "127.0.0.1:6379")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)
	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.user", "ratiba")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "ratiba")
	conf.SetDefault("database.disableTLS", false)
	conf.SetDefault("export.dir", ".")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	// nested keys are read as eg. DEV_SERVICE_BASEURL
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		WorkDir:      wd,
		RollbarToken: conf.GetString("rollbarToken"),
		Service: ServiceConfig{
			BaseURL: conf.GetString("service.baseURL"),
			Timeout: conf.GetDuration("service.timeout"),
		},
		Server: ServerConfig{
			Address:         conf.GetString("server.address"),
			Host:            conf.GetString("server.host"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			ViewTTL:         conf.GetDuration("server.viewTTL"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
		},
		Handoff: HandoffConfig{
			Store: CleanString(conf.GetString("handoff.store"), true /* lower */),
			TTL:   conf.GetDuration("handoff.ttl"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redis.addr"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Export: ExportConfig{
			Dir: conf.GetString("export.dir"),
		},
	}
}
