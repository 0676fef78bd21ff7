package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ppiankov/varlens/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

const (
	envPrefix      = "VARLENS"
	configDirName  = ".varlens"
	configFileName = "config.yaml"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "varlens",
	Short: "varlens - resolve (variant, individual) observations from papers",
	Long: `varlens reads a paper and reports, for one gene, which genetic variants
the paper describes and which individuals carry them.

Each paper is resolved through a fixed sequence of inference questions: is the
paper about the gene, which variants and patients does it mention, which of
them are real, and who carries what. Every run ends in a recorded outcome;
papers that fail a gate are reported with the reason, not as errors.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		configureLogger(cfg.Log, verbose)
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("varlens " + Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.varlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")

	_ = viper.BindPFlag(verboseKey, rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads the config file and VARLENS_* environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, configDirName))
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(configFileName, filepath.Ext(configFileName)))
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return defaultLevel
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(n)
	}
	return defaultLevel
}

// configureLogger sends slog output to a rotating file; verbose forces debug level.
// With no file configured only warnings and errors are logged, to stderr.
func configureLogger(cfg model.LogConfig, verbose bool) {
	level := parseSlogLevel(cfg.Level, slog.LevelInfo)
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.TrimSpace(cfg.Filename) == "" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: max(level, slog.LevelWarn)})
	} else {
		handler = slog.NewTextHandler(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
