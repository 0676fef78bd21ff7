package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/varlens/internal/model"
)

// Viper keys; they mirror the yaml layout of model.Config
const (
	verboseKey              = "verbose"
	llmProviderKey          = "llm.provider"
	llmModelKey             = "llm.model"
	llmAPIKeyKey            = "llm.api_key"
	llmBaseURLKey           = "llm.base_url"
	llmTimeoutKey           = "llm.timeout"
	cacheEnabledKey         = "cache.enabled"
	cacheDirKey             = "cache.dir"
	papersConcurrencyKey    = "concurrency.papers"
	inferenceConcurrencyKey = "concurrency.inference"
	requestsPerSecondKey    = "rate_limiting.requests_per_second"
	burstSizeKey            = "rate_limiting.burst_size"
	userAgentKey            = "http.user_agent"
	httpProxyKey            = "http.http_proxy"
	httpsProxyKey           = "http.https_proxy"
	noProxyKey              = "http.no_proxy"
	respectRobotsKey        = "http.respect_robots"
	evidenceKey             = "resolve.evidence"
	fieldsKey               = "resolve.fields"
	formatKey               = "output.format"
	logFilenameKey          = "log.filename"
	logLevelKey             = "log.level"
)

// flagKeys binds command flags to viper keys. Binding happens for the command
// being run, so resolve and batch can share flag names.
var flagKeys = map[string]string{
	"provider":    llmProviderKey,
	"model":       llmModelKey,
	"cache-dir":   cacheDirKey,
	"concurrency": inferenceConcurrencyKey,
	"papers":      papersConcurrencyKey,
	"rps":         requestsPerSecondKey,
	"evidence":    evidenceKey,
	"fields":      fieldsKey,
	"format":      formatKey,
	"http-proxy":  httpProxyKey,
	"https-proxy": httpsProxyKey,
	"log-file":    logFilenameKey,
}

func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = viper.BindPFlag(key, f)
		}
	})
}

type override struct {
	key   string
	apply func(*model.Config)
}

// overrides copy env, flag and config-file values from viper onto the defaults
var overrides = []override{
	{llmProviderKey, func(c *model.Config) { c.LLM.Provider = viper.GetString(llmProviderKey) }},
	{llmModelKey, func(c *model.Config) { c.LLM.Model = viper.GetString(llmModelKey) }},
	{llmAPIKeyKey, func(c *model.Config) { c.LLM.APIKey = viper.GetString(llmAPIKeyKey) }},
	{llmBaseURLKey, func(c *model.Config) { c.LLM.BaseURL = viper.GetString(llmBaseURLKey) }},
	{llmTimeoutKey, func(c *model.Config) { c.LLM.Timeout = viper.GetInt(llmTimeoutKey) }},
	{cacheEnabledKey, func(c *model.Config) { c.Cache.Enabled = viper.GetBool(cacheEnabledKey) }},
	{cacheDirKey, func(c *model.Config) { c.Cache.Dir = viper.GetString(cacheDirKey) }},
	{papersConcurrencyKey, func(c *model.Config) { c.Concurrency.Papers = viper.GetInt(papersConcurrencyKey) }},
	{inferenceConcurrencyKey, func(c *model.Config) { c.Concurrency.Inference = viper.GetInt(inferenceConcurrencyKey) }},
	{requestsPerSecondKey, func(c *model.Config) { c.RateLimiting.RequestsPerSecond = viper.GetFloat64(requestsPerSecondKey) }},
	{burstSizeKey, func(c *model.Config) { c.RateLimiting.BurstSize = viper.GetInt(burstSizeKey) }},
	{userAgentKey, func(c *model.Config) { c.HTTP.UserAgent = viper.GetString(userAgentKey) }},
	{httpProxyKey, func(c *model.Config) { c.HTTP.HTTPProxy = viper.GetString(httpProxyKey) }},
	{httpsProxyKey, func(c *model.Config) { c.HTTP.HTTPSProxy = viper.GetString(httpsProxyKey) }},
	{noProxyKey, func(c *model.Config) { c.HTTP.NoProxy = viper.GetString(noProxyKey) }},
	{respectRobotsKey, func(c *model.Config) { c.HTTP.RespectRobots = viper.GetBool(respectRobotsKey) }},
	{evidenceKey, func(c *model.Config) { c.Resolve.Evidence = viper.GetBool(evidenceKey) }},
	{fieldsKey, func(c *model.Config) { c.Resolve.Fields = viper.GetBool(fieldsKey) }},
	{formatKey, func(c *model.Config) { c.Output.Format = viper.GetString(formatKey) }},
	{logFilenameKey, func(c *model.Config) { c.Log.Filename = viper.GetString(logFilenameKey) }},
	{logLevelKey, func(c *model.Config) { c.Log.Level = viper.GetString(logLevelKey) }},
}

// loadConfig layers defaults, the config file, VARLENS_* env vars and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && cfgFile == "":
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for _, o := range overrides {
		if viper.IsSet(o.key) {
			o.apply(cfg)
		}
	}
	cfg.Output.Verbose = viper.GetBool(verboseKey)

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage varlens configuration",
	Long: `Manage varlens configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (VARLENS_*, e.g. VARLENS_LLM_PROVIDER)
3. Config file (~/.varlens/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if f := viper.ConfigFileUsed(); f != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", f)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(data))
		if cfg.LLM.APIKey != "" {
			fmt.Fprintln(os.Stderr, "\nAPI key: set (hidden)")
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long:  `Create ~/.varlens/config.yaml holding every option at its default value.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("find home directory: %w", err)
			}
			path = filepath.Join(home, configDirName, configFileName)
		}
		if err := writeDefaultConfig(path); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", path)
		fmt.Printf("\nAPI keys are read from the environment:\n")
		fmt.Printf("  export OPENAI_API_KEY=sk-...\n")
		fmt.Printf("  export ANTHROPIC_API_KEY=sk-ant-...\n")
		fmt.Printf("  export OLLAMA_BASE_URL=http://localhost:11434\n")
		return nil
	},
}

// writeDefaultConfig refuses to overwrite an existing file
func writeDefaultConfig(path string) (err error) {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := "# varlens configuration\n" +
		"# Environment variables (VARLENS_SECTION_KEY) and flags override these values.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
