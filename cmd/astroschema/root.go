package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lychee-technology/astroschema"
	"github.com/lychee-technology/astroschema/factory"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "ASTROSCHEMA"

// app carries the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	config     *astroschema.Config
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	cmd := &cobra.Command{
		Use:          "astroschema",
		Short:        "Manage and apply the astronomical record schemas",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			return setupLogging(a.config.Logging)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = zap.L().Sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file path")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (json, console)")
	flags.String("schema-dir", "", "Schema directory (default: bundled schemas)")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("registry.schemaDir", flags.Lookup("schema-dir"))

	cmd.AddCommand(newIndexCommand(a))
	cmd.AddCommand(newTestCommand(a))
	cmd.AddCommand(newValidateCommand(a))
	cmd.AddCommand(newInlineCommand(a))
	cmd.AddCommand(newGenKeysCommand(a))
	cmd.AddCommand(newPublishCommand(a))
	cmd.AddCommand(newSyncCommand(a))
	return cmd
}

// setDefaults registers every key of DefaultConfig so that AutomaticEnv
// and Unmarshal see them.
func setDefaults(v *viper.Viper) {
	d := astroschema.DefaultConfig()
	v.SetDefault("registry.schemaDir", d.Registry.SchemaDir)
	v.SetDefault("registry.fixturesDir", d.Registry.FixturesDir)
	v.SetDefault("s3.enabled", d.S3.Enabled)
	v.SetDefault("s3.bucket", d.S3.Bucket)
	v.SetDefault("s3.prefix", d.S3.Prefix)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.accessKey", d.S3.AccessKey)
	v.SetDefault("s3.secretKey", d.S3.SecretKey)
	v.SetDefault("s3.usePathStyle", d.S3.UsePathStyle)
	v.SetDefault("s3.cacheDir", d.S3.CacheDir)
	v.SetDefault("s3.timeout", d.S3.Timeout)
	v.SetDefault("struct.extendable", d.Struct.Extendable)
	v.SetDefault("struct.duplicateUsesHash", d.Struct.DuplicateUsesHash)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

func (a *app) loadConfig() error {
	v := a.v
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("astroschema")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/astroschema")
		// A missing default config file is fine.
		_ = v.ReadInConfig()
	}

	config := astroschema.DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	a.config = config
	return nil
}

func setupLogging(cfg astroschema.LoggingConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// registry opens the registry the configuration points at.
func (a *app) registry(cmd *cobra.Command) (*astroschema.Registry, error) {
	return factory.NewRegistryWithConfig(cmd.Context(), a.config)
}

// schemaDir returns the first argument, or the configured schema directory.
func (a *app) schemaDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if a.config.Registry.SchemaDir != "" {
		return a.config.Registry.SchemaDir, nil
	}
	return "", fmt.Errorf("no schema directory given and registry.schemaDir is not set")
}
