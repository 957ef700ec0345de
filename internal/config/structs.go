//nolint:lll
package config

// Config represents the complete configuration for ticketscan.
// It covers every command (scan, export, explain, serve) and is loaded from
// configuration files, environment variables, and command-line flags.
type Config struct {
	LogLevel string    `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool      `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	Log      LogConfig `mapstructure:"log" yaml:"log" json:"log"`

	Scan   ScanConfig   `mapstructure:"scan" yaml:"scan" json:"scan"`
	Export ExportConfig `mapstructure:"export" yaml:"export" json:"export"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store" json:"store"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// LogConfig controls the log destination and rotation.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// ScanConfig contains recognition and classification settings.
type ScanConfig struct {
	Mode         string   `mapstructure:"mode" yaml:"mode" json:"mode"`
	Workers      int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	RenderScale  float64  `mapstructure:"render_scale" yaml:"render_scale" json:"render_scale"`
	Color        bool     `mapstructure:"color" yaml:"color" json:"color"`
	Filter       string   `mapstructure:"filter" yaml:"filter" json:"filter"`
	TopLines     int      `mapstructure:"top_lines" yaml:"top_lines" json:"top_lines"`
	TopChars     int      `mapstructure:"top_chars" yaml:"top_chars" json:"top_chars"`
	UseTextLayer bool     `mapstructure:"use_text_layer" yaml:"use_text_layer" json:"use_text_layer"`
	Languages    []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	PageSegMode  int      `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	CacheSize    int      `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size"`
	Password     string   `mapstructure:"password" yaml:"password,omitempty" json:"-"`
}

// ExportConfig contains document export settings.
type ExportConfig struct {
	SearchAddress string `mapstructure:"search_address" yaml:"search_address" json:"search_address"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
}

// StoreConfig locates persisted scans.
type StoreConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig bounds per-client usage. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}
