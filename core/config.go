package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string
		Env          string
		Build        string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
	}

	ServerConfig struct {
		Host           string
		Address        string
		DisableReqLogs bool
	}

	DatabaseConfig struct {
		Engine string // postgres | sqlite
		DSN    string
	}
)

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the current ENV (DEV by default), eg: DEV_DATABASE_DSN.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "TeacherHub")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.dsn", "file:teacherhub.db?_pragma=foreign_keys(1)")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Address:        v.GetString("server.address"),
			DisableReqLogs: v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine: v.GetString("database.engine"),
			DSN:    v.GetString("database.dsn"),
		},
	}, nil
}
