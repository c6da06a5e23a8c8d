package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "firecontrol.cfg.json"

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type          string        `json:"type" mapstructure:"type"` // "memory", "sqlite", "postgres" or "websocket"
	BatchSize     int           `json:"batchSize" mapstructure:"batchSize"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	Memory        MemoryConfig  `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig  `json:"sqlite" mapstructure:"sqlite"`
	DB            DBConfig      `json:"db" mapstructure:"db"`
	WebSocket     StreamConfig  `json:"websocket" mapstructure:"websocket"`
}

// StreamConfig holds live stream backend settings
type StreamConfig struct {
	URL        string        `json:"url" mapstructure:"url"`
	Secret     string        `json:"secret" mapstructure:"secret"`
	AckTimeout time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN returns the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the InfluxDB server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// APIConfig holds recording archive upload settings
type APIConfig struct {
	Upload    bool   `json:"upload" mapstructure:"upload"`
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// SimConfig holds simulation driver settings
type SimConfig struct {
	Scenario string        `json:"scenario" mapstructure:"scenario"`
	TickRate time.Duration `json:"tickRate" mapstructure:"tickRate"`
	Duration time.Duration `json:"duration" mapstructure:"duration"`
	Seed     uint64        `json:"seed" mapstructure:"seed"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Op")
	viper.SetDefault("logsDir", "./fclogs")

	viper.SetDefault("sim.scenario", "duel")
	viper.SetDefault("sim.tickRate", "20ms")
	viper.SetDefault("sim.duration", "30s")
	viper.SetDefault("sim.seed", 1)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.batchSize", 2000)
	viper.SetDefault("storage.flushInterval", "1s")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.ackTimeout", "10s")

	viper.SetDefault("storage.db.host", "localhost")
	viper.SetDefault("storage.db.port", "5432")
	viper.SetDefault("storage.db.username", "postgres")
	viper.SetDefault("storage.db.password", "postgres")
	viper.SetDefault("storage.db.database", "firecontrol")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "firecontrol")
	viper.SetDefault("influx.bucket", "engagements")
	viper.SetDefault("influx.backupPath", "./fclogs/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("api.upload", false)
	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "firecontrol")
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

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		BatchSize:     viper.GetInt("storage.batchSize"),
		FlushInterval: viper.GetDuration("storage.flushInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		DB: DBConfig{
			Host:     viper.GetString("storage.db.host"),
			Port:     viper.GetString("storage.db.port"),
			Username: viper.GetString("storage.db.username"),
			Password: viper.GetString("storage.db.password"),
			Database: viper.GetString("storage.db.database"),
		},
		WebSocket: StreamConfig{
			URL:        viper.GetString("storage.websocket.url"),
			Secret:     viper.GetString("storage.websocket.secret"),
			AckTimeout: viper.GetDuration("storage.websocket.ackTimeout"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the Graylog configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetAPIConfig returns the recording archive configuration.
func GetAPIConfig() APIConfig {
	return APIConfig{
		Upload:    viper.GetBool("api.upload"),
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetSimConfig returns the simulation driver configuration.
func GetSimConfig() SimConfig {
	return SimConfig{
		Scenario: viper.GetString("sim.scenario"),
		TickRate: viper.GetDuration("sim.tickRate"),
		Duration: viper.GetDuration("sim.duration"),
		Seed:     viper.GetUint64("sim.seed"),
	}
}

// LoadTuning decodes the "tuning" section over out. Fields absent from the
// config file keep the values out already holds, so callers pass a struct
// pre-filled with defaults. Durations accept strings like "150ms".
func LoadTuning(out any) error {
	if !viper.IsSet("tuning") {
		return nil
	}
	err := viper.UnmarshalKey("tuning", out, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return fmt.Errorf("error decoding tuning: %w", err)
	}
	return nil
}

// TuningSnapshot returns the raw "tuning" section for recording with a session.
func TuningSnapshot() map[string]any {
	return viper.GetStringMap("tuning")
}
