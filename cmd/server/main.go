package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/iafnetworkspa/ipinfo-mcp/internal/ipinfo"
	"github.com/iafnetworkspa/ipinfo-mcp/internal/mcp"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0"
var version = "0.1.0"

const envPrefix = "IPINFO_MCP"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ipinfo-mcp",
		Short: "MCP server exposing public IP geolocation over stdio",
		Long: `ipinfo-mcp speaks JSON-RPC 2.0 (Model Context Protocol) on stdin/stdout
and exposes a single tool, get_ip_info, backed by the ipinfo.io API.
Configuration is read from IPINFO_MCP_* environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logLevel, err := loadConfig(viper.New())
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			setupLogger(logLevel)

			return mcp.NewServer(cfg).Run(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ipinfo-mcp "+version)
		},
	})
	return root
}

// loadConfig loads configuration from environment variables
func loadConfig(v *viper.Viper) (mcp.Config, string, error) {
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")
	v.SetDefault("api_url", ipinfo.DefaultURL)
	v.SetDefault("api_timeout", 30)
	v.SetDefault("lang", "en")

	timeout, err := cast.ToIntE(v.Get("api_timeout"))
	if err != nil {
		return mcp.Config{}, "", fmt.Errorf("%s_API_TIMEOUT must be an integer: %w", envPrefix, err)
	}

	cfg := mcp.Config{
		Version:  version,
		Language: v.GetString("lang"),
		IPInfo: ipinfo.Config{
			URL:        v.GetString("api_url"),
			APITimeout: timeout,
		},
	}

	u, err := url.Parse(cfg.IPInfo.URL)
	if err != nil {
		return cfg, "", fmt.Errorf("%s_API_URL is invalid: %w", envPrefix, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cfg, "", fmt.Errorf("%s_API_URL must be an absolute http(s) URL, got %q", envPrefix, cfg.IPInfo.URL)
	}
	if cfg.IPInfo.APITimeout < 0 {
		return cfg, "", fmt.Errorf("%s_API_TIMEOUT must not be negative", envPrefix)
	}

	return cfg, v.GetString("log_level"), nil
}

// setupLogger sends all diagnostics to stderr; stdout is reserved for JSON-RPC
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}).With().Str("session", uuid.NewString()).Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
