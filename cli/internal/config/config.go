// Package config loads CLI configuration from config files, environment
// variables and dotenv files.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem used by the CLI, swappable in tests.
var AppFs = afero.NewOsFs()

// Config holds the CLI configuration.
type Config struct {
	DatabaseURL      string
	MigrationsDir    string
	MinServerVersion string
	Debug            bool
}

// Load reads configuration: .recordql.yaml in the working directory or
// home, RECORDQL_* environment variables, and .env files.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".recordql")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "recordql"))

	viper.SetEnvPrefix("RECORDQL")
	viper.AutomaticEnv()

	viper.SetDefault("migrations_dir", "migrations")
	viper.SetDefault("min_server_version", "")
	viper.SetDefault("debug", false)

	// Missing config files are fine.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MigrationsDir:    viper.GetString("migrations_dir"),
		MinServerVersion: viper.GetString("min_server_version"),
		Debug:            viper.GetBool("debug"),
	}
	if url := viper.GetString("database_url"); cfg.DatabaseURL == "" && url != "" {
		cfg.DatabaseURL = url
	}
	return cfg, nil
}
