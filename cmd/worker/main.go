// Command worker runs the Temporal worker hosting the consultation workflow
// and its activities.
package main

import (
	"flag"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-consilium/internal/config"
	"github.com/ahrav/go-consilium/internal/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONSILIUM_CONFIG"), "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Error("failed to connect to Temporal", "host_port", cfg.Temporal.HostPort, "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	llmClient, err := worker.InitializeLLMClient(cfg.LLM)
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	w := sdkworker.New(temporalClient, cfg.Temporal.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, llmClient, cfg.RolePolicy())

	logger.Info("worker starting",
		"task_queue", cfg.Temporal.TaskQueue,
		"namespace", cfg.Temporal.Namespace)

	// Run blocks until interrupted.
	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
}
