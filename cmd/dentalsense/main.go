package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tunglt-picon/dentalsense/ai/chat"
	"github.com/tunglt-picon/dentalsense/ai/core/llm"
	"github.com/tunglt-picon/dentalsense/ai/guardrail"
	"github.com/tunglt-picon/dentalsense/ai/metrics"
	"github.com/tunglt-picon/dentalsense/ai/search"
	"github.com/tunglt-picon/dentalsense/internal/profile"
	"github.com/tunglt-picon/dentalsense/internal/version"
	"github.com/tunglt-picon/dentalsense/server"
	"github.com/tunglt-picon/dentalsense/store"
)

var rootCmd = &cobra.Command{
	Use:   "dentalsense",
	Short: `A dental-domain conversational assistant. Grounded answers from web search, with per-conversation memory.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Only load .env for direct binary execution (not when running as systemd service).
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:     viper.GetString("mode"),
			Addr:     viper.GetString("addr"),
			Port:     viper.GetInt("port"),
			UNIXSock: viper.GetString("unix-sock"),
			Version:  version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		s, err := buildServer(instanceProfile)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		serveErrCh, err := s.Start()
		if err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}

		printGreetings(instanceProfile)

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM. SIGTERM is what
		// most process managers (systemd, Kubernetes) send.
		signal.Notify(c, terminationSignals...)

		select {
		case <-c:
		case err, ok := <-serveErrCh:
			if ok && err != nil {
				slog.Error("server failed", "error", err)
			}
		}
		s.Shutdown(context.Background())
	},
}

// buildServer wires the full dependency graph: LLM client, guardrail,
// search registry, conversation store, orchestrator, metrics, HTTP server.
func buildServer(instanceProfile *profile.Profile) (*server.Server, error) {
	llmService, err := llm.NewService(&llm.Config{
		Provider:     instanceProfile.LLMProvider,
		APIKey:       instanceProfile.LLMAPIKey,
		BaseURL:      instanceProfile.LLMBaseURL,
		MainModel:    instanceProfile.LLMModel,
		LightModel:   instanceProfile.LLMLightModel,
		Temperature:  float32(instanceProfile.LLMTemperature),
		MainTimeout:  instanceProfile.LLMTimeout,
		LightTimeout: instanceProfile.LLMLightTimeout,
	})
	if err != nil {
		return nil, err
	}

	// Warmup asynchronously to reduce first-request latency. Best effort:
	// a failed warmup does not affect startup.
	go func() {
		warmupCtx, warmupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer warmupCancel()
		llmService.Warmup(warmupCtx)
	}()

	var googleTool search.Tool
	if instanceProfile.GoogleAPIKey != "" {
		tool, err := search.NewGoogleTool(search.GoogleConfig{
			APIKey: instanceProfile.GoogleAPIKey,
			CSEID:  instanceProfile.GoogleCSEID,
			QPS:    float64(instanceProfile.GoogleQPS),
		})
		if err != nil {
			return nil, err
		}
		googleTool = tool
	} else {
		slog.Warn("google search not configured, only duckduckgo will be available")
	}
	registry := search.NewRegistry(googleTool, search.NewDuckDuckGoTool(""))

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	gate := guardrail.New(llmService)
	conversationStore := store.NewConversationStore()

	chatService := chat.NewService(llmService, gate, registry, conversationStore, exporter, chat.Config{
		SummaryMaxTokens:       instanceProfile.SummaryMaxTokens,
		SummaryTimeout:         time.Duration(instanceProfile.SummaryTimeoutSeconds) * time.Second,
		MaxConcurrentSummaries: int64(instanceProfile.MaxConcurrentSummaries),
	})

	return server.NewServer(instanceProfile, chatService, conversationStore, exporter), nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 28081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28081, "port of server")
	rootCmd.PersistentFlags().String("unix-sock", "", "path to the unix socket, overrides --addr and --port")

	for _, flag := range []string{"mode", "addr", "port", "unix-sock"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("dentalsense")
	viper.AutomaticEnv()
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("DentalSense %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}

	fmt.Printf("Mode: %s\n", profile.Mode)
	fmt.Printf("LLM provider: %s (%s)\n", profile.LLMProvider, profile.LLMModel)

	if len(profile.UNIXSock) == 0 {
		if len(profile.Addr) == 0 {
			fmt.Printf("Server running on port %d\n", profile.Port)
		} else {
			fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
		}
	} else {
		fmt.Printf("Server running on unix socket: %s\n", profile.UNIXSock)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
