package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"medow/internal/config"
	"medow/internal/console"
	"medow/internal/logger"
	"medow/internal/search"
	"medow/internal/utils"
	"medow/internal/web"
	"medow/internal/worker"
	"medow/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:          "medow",
	Short:        "Search the German public broadcasters' media libraries",
	Long:         `Medow searches MediathekViewWeb for broadcasts by topic and title and pages through the results, newest first.`,
	SilenceUsage: true,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Print one page of search results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var browseCmd = &cobra.Command{
	Use:   "browse [query]",
	Short: "Browse search results interactively",
	RunE:  runBrowse,
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the JSON API server",
	RunE:  runWeb,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	// Global flags
	rootCmd.PersistentFlags().String("user-agent", "", "User-Agent sent to the search service")
	rootCmd.PersistentFlags().String("api-url", "", "Base URL of the search service")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request timeout, e.g. 30s")
	rootCmd.PersistentFlags().String("quality", "", "Video quality preference: sd-first or hd-first")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode for detailed logging")

	// Search command flags
	searchCmd.Flags().Int("page", 1, "Page of results to print")

	// Web command flags
	webCmd.Flags().Int("port", web.DefaultPort, "Port to serve the API on")
	webCmd.Flags().Int("rate-limit", web.DefaultRateLimit, "Requests per minute allowed per client IP, 0 disables")
	webCmd.Flags().Duration("session-max-age", web.DefaultSessionMaxAge, "Idle time after which a client session is dropped")
}

func loadAndValidateConfig(cmd *cobra.Command) (*models.Config, error) {
	// Set up debug mode first
	debug, _ := cmd.Flags().GetBool("debug")
	logger.SetDebugMode(debug)

	logger.Debug("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var flags config.Flags
	flags.UserAgent, _ = cmd.Flags().GetString("user-agent")
	flags.APIURL, _ = cmd.Flags().GetString("api-url")
	flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
	flags.QualityPolicy, _ = cmd.Flags().GetString("quality")

	config.MergeWithFlags(cfg, flags)

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded successfully - API: %s, timeout: %v, quality: %s",
		cfg.APIURL, cfg.Timeout, cfg.QualityPolicy)
	return cfg, nil
}

func newOrchestrator(cfg *models.Config) (*search.Orchestrator, error) {
	policy, err := search.ParseQualityPolicy(cfg.QualityPolicy)
	if err != nil {
		return nil, err
	}
	return search.NewOrchestrator(search.NewMediathekFactory(cfg), policy), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := utils.NormalizeQuery(strings.Join(args, " "))
	logger.Info("Starting search for: %s", query)

	cfg, err := loadAndValidateConfig(cmd)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		return err
	}

	page, _ := cmd.Flags().GetInt("page")

	orchestrator, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	session := search.NewSession("cli", orchestrator)

	ctx, cancel := signalContext()
	defer cancel()

	if err := session.SearchPage(ctx, query, page); err != nil {
		logger.Debug("Search failed: %v", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Results for %q\n", session.Query())
	console.RenderPage(out, session.Page())
	return nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	query := utils.NormalizeQuery(strings.Join(args, " "))

	cfg, err := loadAndValidateConfig(cmd)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		return err
	}

	orchestrator, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := worker.New(ctx)
	defer runner.Close()

	browser := console.NewBrowser(search.NewSession("console", orchestrator), runner, cmd.InOrStdin(), cmd.OutOrStdout())
	if err := browser.Run(ctx, query); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runWeb(cmd *cobra.Command, args []string) error {
	logger.Info("Starting web API server")

	cfg, err := loadAndValidateConfig(cmd)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		return err
	}

	var serverCfg models.ServerConfig
	serverCfg.Port, _ = cmd.Flags().GetInt("port")
	serverCfg.RateLimit, _ = cmd.Flags().GetInt("rate-limit")
	serverCfg.SessionMaxAge, _ = cmd.Flags().GetDuration("session-max-age")
	if serverCfg.RateLimit == 0 {
		serverCfg.RateLimit = -1
	}

	logger.Debug("Web server configuration - Port: %d, rate limit: %d/min", serverCfg.Port, serverCfg.RateLimit)

	orchestrator, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	server := web.NewServer(serverCfg, orchestrator)

	ctx, cancel := signalContext()
	defer cancel()

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for either interrupt signal or server error
	select {
	case <-ctx.Done():
		logger.Info("Received interrupt signal, shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("Error during shutdown: %v", err)
			return err
		}
		logger.Info("Server shut down gracefully")
		return nil

	case err := <-serverErr:
		logger.Error("Server error: %v", err)
		return fmt.Errorf("server error: %w", err)
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadAndValidateConfig(cmd)
	if err != nil {
		return err
	}

	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", filepath.Join(dir, config.ConfigFile))
	out.Write(data)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
