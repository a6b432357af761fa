package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Parser   ParserConfig   `mapstructure:"parser"   validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=0,lte=31"`
}

// ParserConfig tunes the editing pipeline: how long after the last
// keystroke a reparse fires, and how long saves suppress the next reparse
// (a save already produces a fresh parse of its own).
type ParserConfig struct {
	DebounceMs        int `mapstructure:"debounce_ms"         validate:"required,gt=0"`
	SaveSuppressionMs int `mapstructure:"save_suppression_ms" validate:"required,gt=0"`
}

// TaskConfig contains background task runner settings.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}
