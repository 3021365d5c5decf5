// Command routerctl exercises configured providers from the terminal using the
// same routing, fallback and accounting path as the HTTP gateway.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ncecere/model_router/internal/app"
	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/observability"
	"github.com/ncecere/model_router/internal/redisclient"
)

var (
	configFile string
	envFile    string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "routerctl",
		Short:         "Inspect and call model providers through the router",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to router config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(
		providersCmd(),
		modelCmd(),
		modelsCmd(),
		promptCmd(),
		chatCmd(),
		configCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile})
}

// session is a built container plus the resources that must be closed.
type session struct {
	*app.Container
	redis *redis.Client
}

func (s *session) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(os.Stderr, logLevel, "text")

	var client *redis.Client
	if cfg.Redis.URL != "" {
		client, err = redisclient.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("configure redis: %w", err)
		}
		if err := redisclient.Ping(ctx, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	container, err := app.NewContainer(ctx, cfg, app.Options{Redis: client, Logger: logger})
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}
	return &session{Container: container, redis: client}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
