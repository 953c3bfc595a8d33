package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Path            string `mapstructure:"path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SessionConfig tunes the session lifecycle manager. The two reconnect
// delays differ on purpose: rapid retries after a failed initial sync make
// sync storms worse, so that path waits longer before dialing again.
type SessionConfig struct {
	PairingTimeoutSeconds   int    `mapstructure:"pairing_timeout_seconds"`
	ReconnectDelaySeconds   int    `mapstructure:"reconnect_delay_seconds"`
	SyncFailureDelaySeconds int    `mapstructure:"sync_failure_delay_seconds"`
	HealthProbeTimeoutMs    int    `mapstructure:"health_probe_timeout_ms"`
	CredentialDir           string `mapstructure:"credential_dir"`
}

type BridgeConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type CacheConfig struct {
	TTLSeconds           int `mapstructure:"ttl_seconds"`
	Capacity             int `mapstructure:"capacity"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// RateLimitConfig bounds pairing attempts on the connect endpoint. Zero
// disables the corresponding window.
type RateLimitConfig struct {
	ConnectPerMinute int `mapstructure:"connect_per_minute"`
	ConnectPerHour   int `mapstructure:"connect_per_hour"`
}
