package astroschema

import "time"

// Config gathers the settings of the registry, the remote schema source,
// record construction and logging.
type Config struct {
	Registry RegistryConfig `json:"registry" mapstructure:"registry"`
	S3       S3Config       `json:"s3" mapstructure:"s3"`
	Struct   StructConfig   `json:"struct" mapstructure:"struct"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// RegistryConfig locates the schema set on disk. An empty SchemaDir means
// the schemas bundled into the binary.
type RegistryConfig struct {
	SchemaDir   string `json:"schemaDir" mapstructure:"schemaDir"`
	FixturesDir string `json:"fixturesDir" mapstructure:"fixturesDir"`
}

// S3Config describes a bucket holding a published schema set.
type S3Config struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	Bucket       string        `json:"bucket" mapstructure:"bucket"`
	Prefix       string        `json:"prefix" mapstructure:"prefix"`
	Region       string        `json:"region" mapstructure:"region"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	AccessKey    string        `json:"accessKey" mapstructure:"accessKey"`
	SecretKey    string        `json:"secretKey" mapstructure:"secretKey"`
	UsePathStyle bool          `json:"usePathStyle" mapstructure:"usePathStyle"`
	CacheDir     string        `json:"cacheDir" mapstructure:"cacheDir"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
}

// StructConfig holds defaults for record types built from configuration.
type StructConfig struct {
	Extendable        bool `json:"extendable" mapstructure:"extendable"`
	DuplicateUsesHash bool `json:"duplicateUsesHash" mapstructure:"duplicateUsesHash"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			FixturesDir: "testdata/fixtures",
		},
		S3: S3Config{
			Region:   "us-east-1",
			Prefix:   "schema/",
			CacheDir: ".astroschema-cache",
			Timeout:  30 * time.Second,
		},
		Struct: StructConfig{
			Extendable:        true,
			DuplicateUsesHash: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Registry.SchemaDir != "" && c.S3.Enabled {
		return &ConfigError{Field: "registry.schemaDir", Message: "cannot be combined with s3.enabled"}
	}

	if err := c.S3.validate(); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be json or console"}
	}
	return nil
}

func (s *S3Config) validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Bucket == "" {
		return &ConfigError{Field: "s3.bucket", Message: "required when s3 is enabled"}
	}
	if s.AccessKey != "" && s.SecretKey == "" {
		return &ConfigError{Field: "s3.secretKey", Message: "accessKey provided without secretKey"}
	}
	if s.SecretKey != "" && s.AccessKey == "" {
		return &ConfigError{Field: "s3.accessKey", Message: "secretKey provided without accessKey"}
	}
	if s.CacheDir == "" {
		return &ConfigError{Field: "s3.cacheDir", Message: "required when s3 is enabled"}
	}
	if s.Timeout <= 0 {
		return &ConfigError{Field: "s3.timeout", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
