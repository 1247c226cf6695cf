package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// Config represents the CLI configuration.
type Config struct {
	APIEndpoint  string      `json:"api_endpoint,omitempty"  yaml:"api_endpoint,omitempty"`
	AuthEndpoint string      `json:"auth_endpoint,omitempty" yaml:"auth_endpoint,omitempty"`
	AccountID    string      `json:"account_id,omitempty"    yaml:"account_id,omitempty"`
	ClientID     string      `json:"client_id,omitempty"     yaml:"client_id,omitempty"`
	ClientSecret string      `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	Scope        string      `json:"scope,omitempty"         yaml:"scope,omitempty"`
	Output       string      `json:"output,omitempty"        yaml:"output,omitempty"`
	RetryMax     int         `json:"retry_max"               yaml:"retry_max"`
	RateLimit    float64     `json:"rate_limit,omitempty"    yaml:"rate_limit,omitempty"`
	Cache        CacheConfig `json:"cache"                   yaml:"cache"`
}

// CacheConfig selects the token cache of the CLI.
type CacheConfig struct {
	Type     string `json:"type,omitempty"      yaml:"type,omitempty"`
	NATSURL  string `json:"nats_url,omitempty"  yaml:"nats_url,omitempty"`
	Bucket   string `json:"bucket,omitempty"    yaml:"bucket,omitempty"`
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
}

// settableKeys are the keys accepted by 'config set'.
var settableKeys = []string{
	"api_endpoint", "auth_endpoint", "account_id", "client_id", "client_secret",
	"scope", "output", "retry_max", "rate_limit", "cache.type", "cache.nats_url", "cache.bucket", "cache.redis_url",
}

// AddGlobalFlags registers the persistent flags and binds them to viper.
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.flowmailer/config.yml)")
	flags.String("api", "", "API endpoint URL")
	flags.String("auth", "", "OAuth2 endpoint URL")
	flags.StringP("account", "a", "", "account ID")
	flags.String("client-id", "", "OAuth2 client ID")
	flags.String("output", constants.FormatTable, "output format (table, json, yaml)")
	flags.Int("retry-max", constants.DefaultRetryMax, "retries for 429, 5xx and network errors")
	flags.Float64("rate-limit", 0, "maximum requests per second, 0 for unlimited")
	flags.BoolP("verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("api_endpoint", flags.Lookup("api"))
	_ = viper.BindPFlag("auth_endpoint", flags.Lookup("auth"))
	_ = viper.BindPFlag("account_id", flags.Lookup("account"))
	_ = viper.BindPFlag("client_id", flags.Lookup("client-id"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("retry_max", flags.Lookup("retry-max"))
	_ = viper.BindPFlag("rate_limit", flags.Lookup("rate-limit"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

func loadConfig() *Config {
	return &Config{
		APIEndpoint:  viper.GetString("api_endpoint"),
		AuthEndpoint: viper.GetString("auth_endpoint"),
		AccountID:    viper.GetString("account_id"),
		ClientID:     viper.GetString("client_id"),
		ClientSecret: viper.GetString("client_secret"),
		Scope:        viper.GetString("scope"),
		Output:       viper.GetString("output"),
		RetryMax:     viper.GetInt("retry_max"),
		RateLimit:    viper.GetFloat64("rate_limit"),
		Cache: CacheConfig{
			Type:     viper.GetString("cache.type"),
			NATSURL:  viper.GetString("cache.nats_url"),
			Bucket:   viper.GetString("cache.bucket"),
			RedisURL: viper.GetString("cache.redis_url"),
		},
	}
}

// masked returns a copy safe for display.
func (c *Config) masked() *Config {
	masked := *c
	if masked.ClientSecret != "" {
		masked.ClientSecret = constants.MaskedSecret
	}

	return &masked
}

// cacheConfig translates the CLI cache settings.
func (c *Config) cacheConfig() *flowmailer.CacheConfig {
	config := flowmailer.DefaultCacheConfig()

	switch flowmailer.CacheType(c.Cache.Type) {
	case flowmailer.CacheTypeNATS:
		config.Type = flowmailer.CacheTypeNATS
		config.NATS = &flowmailer.NATSKVConfig{URL: c.Cache.NATSURL, Bucket: c.Cache.Bucket}
	case flowmailer.CacheTypeRedis:
		config.Type = flowmailer.CacheTypeRedis
		config.Redis = &flowmailer.RedisConfig{URL: c.Cache.RedisURL}
	case flowmailer.CacheTypeNone:
		config.Type = flowmailer.CacheTypeNone
	case "", flowmailer.CacheTypeMemory:
	default:
		config.Type = flowmailer.CacheType(c.Cache.Type)
	}

	return config
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the Flowmailer CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigPathCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig().masked()

			return render(cmd.OutOrStdout(), config, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("API Endpoint", valueOrDefault(config.APIEndpoint, flowmailer.DefaultAPIEndpoint))
				_ = table.Append("Auth Endpoint", valueOrDefault(config.AuthEndpoint, flowmailer.DefaultAuthEndpoint))
				_ = table.Append("Account ID", valueOrDefault(config.AccountID, constants.NotAvailable))
				_ = table.Append("Client ID", valueOrDefault(config.ClientID, constants.NotAvailable))
				_ = table.Append("Client Secret", valueOrDefault(config.ClientSecret, constants.NotAvailable))
				_ = table.Append("Scope", valueOrDefault(config.Scope, flowmailer.DefaultScope))
				_ = table.Append("Retry Max", cast.ToString(config.RetryMax))
				_ = table.Append("Rate Limit", cast.ToString(config.RateLimit))
				_ = table.Append("Cache", valueOrDefault(config.Cache.Type, string(flowmailer.CacheTypeMemory)))
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(settableKeys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !slices.Contains(settableKeys, key) {
				return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
			}

			switch key {
			case "retry_max":
				retries, err := cast.ToIntE(value)
				if err != nil {
					return fmt.Errorf("invalid retry_max: %w", err)
				}

				viper.Set(key, retries)
			case "rate_limit":
				limit, err := cast.ToFloat64E(value)
				if err != nil {
					return fmt.Errorf("invalid rate_limit: %w", err)
				}

				viper.Set(key, limit)
			default:
				viper.Set(key, value)
			}

			path, err := saveConfig(loadConfig())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", key, path)

			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}
}

func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".flowmailer", "config.yml"), nil
}

// saveConfig writes config as YAML and returns the file it was written to.
func saveConfig(config *Config) (string, error) {
	configFile, err := configFilePath()
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configFile, nil
}

// render writes data in the configured output format. Tables are filled by fill.
func render(out io.Writer, data any, fill func(table *tablewriter.Table)) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(data)
	case constants.FormatTable, "":
		table := tablewriter.NewWriter(out)
		fill(table)

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, viper.GetString("output"))
	}
}

func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

func truncate(value string, length int) string {
	runes := []rune(value)
	if len(runes) <= length {
		return value
	}

	return string(runes[:length-3]) + "..."
}
