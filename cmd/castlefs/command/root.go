package command

// root.go defines the root command for the castlefs CLI.
// Global flags here override the environment configuration.

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"castlefs/internal/client"
	"castlefs/internal/config"
	"castlefs/internal/transport"
)

var (
	brokerKind string        // broker backend: redis | nats
	brokerURL  string        // broker address override
	timeout    time.Duration // per-request timeout
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "castlefs",
	Short: "castlefs - remote filesystem client",
	Long: `castlefs talks to a castlefs agent over the configured message broker.
It can read, write, delete and list files on the agent and watch for
change notifications published by any client.

Use "castlefs command -h" to see the flags of each command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// the CLI wants human-readable logs on stderr, not JSON
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&brokerKind, "broker", "", "broker kind (redis or nats), overrides BROKER_KIND")
	rootCmd.PersistentFlags().StringVar(&brokerURL, "url", "", "broker address, overrides REDIS_URL / NATS_URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout, overrides REQUEST_TIMEOUT")
}

// newSession builds a connected session from env config plus flag overrides.
// The caller owns the returned session and must Close it.
func newSession() (*client.Session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if brokerKind != "" {
		cfg.BrokerKind = brokerKind
	}
	if brokerURL != "" {
		cfg.RedisURL = brokerURL
		cfg.NatsURL = brokerURL
	}
	if timeout > 0 {
		cfg.RequestTimeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	broker, err := transport.NewBroker(cfg.BrokerKind, cfg.RedisAddr(), cfg.RedisPassword, cfg.NatsURL)
	if err != nil {
		return nil, err
	}
	topics := transport.Topics{
		Requests:      cfg.RequestTopic,
		Responses:     cfg.ResponseTopic,
		Notifications: cfg.NotificationTopic,
	}
	return client.NewSession(broker, topics, cfg.RequestTimeout)
}
