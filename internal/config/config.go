// Package config loads damagecast settings through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "damagecast.cfg.json"

// WeaponWords overrides the flavour words for one weapon.
type WeaponWords struct {
	OffenseWords []string `json:"offenseWords" mapstructure:"offenseWords"`
	TriggerWords []string `json:"triggerWords" mapstructure:"triggerWords"`
}

// NarrationConfig holds the word lists used to compose messages.
type NarrationConfig struct {
	OffenseWords []string               `json:"offenseWords" mapstructure:"offenseWords"`
	TriggerWords []string               `json:"triggerWords" mapstructure:"triggerWords"`
	Possessive   string                 `json:"possessive" mapstructure:"possessive"`
	Weapons      map[string]WeaponWords `json:"weapons" mapstructure:"weapons"`
}

// For returns the offense and trigger words for weapon, falling back to the
// defaults for any list the weapon does not override. Weapon names are
// matched case-insensitively since viper lowercases map keys.
func (c NarrationConfig) For(weapon string) (offense, trigger []string) {
	offense, trigger = c.OffenseWords, c.TriggerWords
	if w, ok := c.Weapons[strings.ToLower(weapon)]; ok {
		if len(w.OffenseWords) > 0 {
			offense = w.OffenseWords
		}
		if len(w.TriggerWords) > 0 {
			trigger = w.TriggerWords
		}
	}
	return offense, trigger
}

// PerceptionConfig sizes the perception grid and its worker pool.
type PerceptionConfig struct {
	GridWidth     int `json:"gridWidth" mapstructure:"gridWidth"`
	Workers       int `json:"workers" mapstructure:"workers"`
	DefaultRadius int `json:"defaultRadius" mapstructure:"defaultRadius"`
}

// TransportConfig holds websocket server settings.
type TransportConfig struct {
	ListenAddr    string        `json:"listenAddr" mapstructure:"listenAddr"`
	Path          string        `json:"path" mapstructure:"path"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	WriteTimeout  time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// StorageConfig selects and configures the combat log backend
type StorageConfig struct {
	Type          string        `json:"type" mapstructure:"type"`
	WriteInterval time.Duration `json:"writeInterval" mapstructure:"writeInterval"`
	Memory        MemoryConfig  `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig  `json:"sqlite" mapstructure:"sqlite"`
	DB            DBConfig      `json:"db" mapstructure:"db"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./damagecastlogs")

	viper.SetDefault("narration.offenseWords", []string{"hit", "struck"})
	viper.SetDefault("narration.triggerWords", []string{"fired", "swung"})
	viper.SetDefault("narration.possessive", "his")

	viper.SetDefault("perception.gridWidth", 500)
	viper.SetDefault("perception.workers", 0)
	viper.SetDefault("perception.defaultRadius", 16)

	viper.SetDefault("transport.listenAddr", ":8090")
	viper.SetDefault("transport.path", "/ws")
	viper.SetDefault("transport.flushInterval", "50ms")
	viper.SetDefault("transport.writeTimeout", "5s")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./combatlogs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.writeInterval", "2s")
	viper.SetDefault("storage.sqlite.path", "./combatlog.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "damagecast")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "damagecast")
	viper.SetDefault("influx.bucket", "combat")

	viper.SetDefault("monitor.interval", "10s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "damagecast")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetNarrationConfig returns the narration word lists.
func GetNarrationConfig() NarrationConfig {
	cfg := NarrationConfig{
		OffenseWords: viper.GetStringSlice("narration.offenseWords"),
		TriggerWords: viper.GetStringSlice("narration.triggerWords"),
		Possessive:   viper.GetString("narration.possessive"),
	}
	if viper.IsSet("narration.weapons") {
		var weapons map[string]WeaponWords
		if err := viper.UnmarshalKey("narration.weapons", &weapons); err == nil {
			cfg.Weapons = weapons
		}
	}
	return cfg
}

// GetPerceptionConfig returns perception grid settings.
func GetPerceptionConfig() PerceptionConfig {
	return PerceptionConfig{
		GridWidth:     viper.GetInt("perception.gridWidth"),
		Workers:       viper.GetInt("perception.workers"),
		DefaultRadius: viper.GetInt("perception.defaultRadius"),
	}
}

// GetTransportConfig returns websocket server settings.
func GetTransportConfig() TransportConfig {
	return TransportConfig{
		ListenAddr:    viper.GetString("transport.listenAddr"),
		Path:          viper.GetString("transport.path"),
		FlushInterval: viper.GetDuration("transport.flushInterval"),
		WriteTimeout:  viper.GetDuration("transport.writeTimeout"),
	}
}

// GetStorageConfig returns the combat log backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		WriteInterval: viper.GetDuration("storage.writeInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslmode"),
		},
	}
}

// GetInfluxConfig returns InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetOTelConfig returns OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
