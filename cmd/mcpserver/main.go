// Command chronicle-mcp exposes the Chronicle store to MCP clients over
// stdio: one resource per archived item, plus the search/listing tools
// defined in pkg/mcpserver.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bojanni/Chronicle/internal/config"
	"github.com/bojanni/Chronicle/internal/store"
	"github.com/bojanni/Chronicle/pkg/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the MCP server over stdio",
	RunE:  runServe,
}

var rootCmd = &cobra.Command{
	Use:   "chronicle-mcp",
	Short: "Chronicle memory engine: MCP server process",
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDim, log)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	impl := &mcp.Implementation{Name: "chronicle", Version: "1.0.0"}
	bridge := mcpserver.New(s, log)
	server := mcp.NewServer(impl, bridge.Options())
	bridge.Register(server)

	log.Info("mcp server ready, serving over stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
