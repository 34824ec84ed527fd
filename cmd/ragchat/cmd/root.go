package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mfenderov/ragchat/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "ragchat: answers questions from each user's own documents",
	Long: `ragchat stores uploaded documents per user, indexes them in Elasticsearch,
and answers questions grounded only in the caller's documents.

Commands:
  serve   Start the HTTP API
  mcp     Start the MCP server on stdio
  ask     Ask a question from the command line
  ingest  Re-index stored documents`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// envKeys are the nested keys bound to RAGCHAT_* variables.
var envKeys = []string{
	"server.listen",
	"server.cors_origins",
	"server.max_context_chars",
	"elasticsearch.addresses",
	"elasticsearch.index",
	"elasticsearch.username",
	"elasticsearch.password",
	"elasticsearch.page_size",
	"storage.endpoint",
	"storage.bucket",
	"storage.region",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.use_ssl",
	"storage.public_base_url",
	"model.region",
	"model.endpoint",
	"model.access_key_id",
	"model.secret_access_key",
	"model.primary",
	"model.fallback",
	"model.max_tokens",
	"model.temperature",
	"model.top_p",
	"model.fallback_codes",
	"model.fallback_markers",
	"auth.redis_addr",
	"auth.redis_password",
	"auth.redis_db",
	"auth.session_ttl",
	"mcp.name",
	"mcp.version",
}

func initConfig() {
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/ragchat")
		viper.AddConfigPath(".")
	}

	// RAGCHAT_ELASTICSEARCH_ADDRESSES -> elasticsearch.addresses
	viper.SetEnvPrefix("RAGCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, key := range envKeys {
		viper.BindEnv(key, envName(key))
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// List-valued settings arrive from the environment as comma-separated strings.
	splitEnv("elasticsearch.addresses", &cfg.Elasticsearch.Addresses)
	splitEnv("server.cors_origins", &cfg.Server.CORSOrigins)
	splitEnv("model.fallback_codes", &cfg.Model.FallbackCodes)
	splitEnv("model.fallback_markers", &cfg.Model.FallbackMarkers)
}

func envName(key string) string {
	return "RAGCHAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func splitEnv(key string, dst *[]string) {
	raw := os.Getenv(envName(key))
	if raw == "" {
		return
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	*dst = out
}
