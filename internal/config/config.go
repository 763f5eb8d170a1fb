package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/salafibot/salafibot/internal/defaults"
)

// Store drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	// DataDir holds the catalog document, the command tree and the database.
	DataDir string `yaml:"data_dir"`

	Discord struct {
		Token    string `yaml:"token"`
		ClientID string `yaml:"client_id"`
		GuildID  string `yaml:"guild_id"`
	} `yaml:"discord"`

	Commands struct {
		Dir            string   `yaml:"dir"`
		AllowedImports []string `yaml:"allowed_imports"`
		Watch          bool     `yaml:"watch"`
	} `yaml:"commands"`

	Store struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		// URL is the redis:// address for the redis driver.
		URL string `yaml:"url"`
	} `yaml:"store"`

	Sync struct {
		Timeout time.Duration `yaml:"timeout"`
		// Resync is a cron spec for periodic dedup syncs; empty disables it.
		Resync string `yaml:"resync"`
		Global bool   `yaml:"global"`
	} `yaml:"sync"`

	Admin struct {
		Listen string `yaml:"listen"`
		Secret string `yaml:"secret"`
	} `yaml:"admin"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`
}

// LoadFromBytes loads configuration from YAML bytes with environment variable expansion
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	if err := c.merge(data); err != nil {
		return c, err
	}
	return c, nil
}

// MergeFile overlays the YAML file at path onto c. A missing file is not an error.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := c.merge(data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) merge(data []byte) error {
	expanded := os.ExpandEnv(string(data))
	return yaml.Unmarshal([]byte(expanded), c)
}

// Resolve fills derived paths from the data directory and validates the result.
func (c *Config) Resolve() error {
	if c.DataDir == "" {
		dir, err := defaults.DataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.Commands.Dir == "" {
		c.Commands.Dir = filepath.Join(c.DataDir, defaults.CommandsDir)
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverFile
	}
	if c.Store.Path == "" && c.Store.Driver != DriverRedis {
		switch c.Store.Driver {
		case DriverSQLite:
			c.Store.Path = filepath.Join(c.DataDir, defaults.DatabaseFile)
		default:
			c.Store.Path = filepath.Join(c.DataDir, defaults.ConfigDocument)
		}
	}
	if c.Sync.Timeout <= 0 {
		c.Sync.Timeout = 30 * time.Second
	}
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
	case DriverRedis:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for the %s driver", DriverRedis)
		}
	default:
		return fmt.Errorf("unknown store driver %q (want %s, %s or %s)", c.Store.Driver, DriverFile, DriverSQLite, DriverRedis)
	}
	return nil
}

// ValidateRemote reports the missing settings needed to reach Discord.
// Guild deployments additionally need a guild ID.
func (c Config) ValidateRemote(global bool) error {
	var missing []string
	if c.Discord.Token == "" {
		missing = append(missing, "discord.token (DISCORD_TOKEN)")
	}
	if c.Discord.ClientID == "" {
		missing = append(missing, "discord.client_id (CLIENT_ID)")
	}
	if !global && c.Discord.GuildID == "" {
		missing = append(missing, "discord.guild_id (GUILD_ID)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) AdminEnabled() bool {
	return c.Admin.Listen != ""
}
