// main package for the tts-gateway
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/tts-gateway/internal/archive"
	"github.com/book-expert/tts-gateway/internal/artifact"
	"github.com/book-expert/tts-gateway/internal/catalog"
	"github.com/book-expert/tts-gateway/internal/config"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/engine"
	"github.com/book-expert/tts-gateway/internal/httpapi"
	"github.com/book-expert/tts-gateway/internal/preset"
	"github.com/book-expert/tts-gateway/internal/synth"
	"github.com/book-expert/tts-gateway/internal/worker"
)

const (
	bootstrapLogName = "tts-gateway-bootstrap.log"
	gatewayLogName   = "tts-gateway.log"

	shutdownTimeout = 15 * time.Second
)

func setupLogger(logPath, name string) (*logger.Logger, error) {
	log, err := logger.New(logPath, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogName)
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, gatewayLogName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

// serve builds the component graph and runs the gateway until a signal
// arrives.
func serve(cfg *config.Config, log *logger.Logger) error {
	table, err := preset.LoadTable(cfg.Paths.PresetsFile)
	if err != nil {
		return fmt.Errorf("failed to load character presets: %w", err)
	}

	gptCatalog, err := catalog.New(cfg.Catalog.GPTWeightsDir)
	if err != nil {
		return fmt.Errorf("failed to scan gpt weight catalog: %w", err)
	}

	sovitsCatalog, err := catalog.New(cfg.Catalog.SovitsWeightsDir)
	if err != nil {
		return fmt.Errorf("failed to scan sovits weight catalog: %w", err)
	}

	manager, err := artifact.NewManager(cfg.Paths.ArtifactDir, log)
	if err != nil {
		return fmt.Errorf("failed to prepare artifact directory: %w", err)
	}

	client := engine.NewClient(
		cfg.Engine.URL,
		time.Duration(cfg.Engine.TimeoutSeconds)*time.Second,
	)
	handle := engine.NewHandle(client, log)

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	store, workerErrChan, natsCleanup, err := startNATS(ctx, cfg, handle, table, manager, log)
	if err != nil {
		return err
	}
	defer natsCleanup()

	service := synth.NewService(table, handle, manager, store, log)
	server := httpapi.NewServer(service, gptCatalog, sovitsCatalog, client, log)
	httpServer := server.NewHTTPServer(cfg.ListenAddress())

	serverErrChan := make(chan error, 1)

	go func() {
		serverErrChan <- httpServer.ListenAndServe()
	}()

	log.System("TTS gateway listening on %s", cfg.ListenAddress())

	select {
	case <-ctx.Done():
		log.System("Shutdown signal received.")
	case serveErr := <-serverErrChan:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", serveErr)
		}
	case workerErr := <-workerErrChan:
		if workerErr != nil {
			return fmt.Errorf("nats worker failed: %w", workerErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf("failed to shut down http server: %w", shutdownErr)
	}

	return nil
}

// startNATS wires the optional archive store and job worker. An empty NATS
// URL disables both; the returned channel then never yields.
func startNATS(
	ctx context.Context,
	cfg *config.Config,
	handle *engine.Handle,
	table *preset.Table,
	manager *artifact.Manager,
	log *logger.Logger,
) (core.ArtifactStore, <-chan error, func(), error) {
	workerErrChan := make(chan error, 1)

	if cfg.NATS.URL == "" {
		return nil, workerErrChan, func() {}, nil
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := archive.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, nil, err
	}

	// The worker uploads results itself, so its service carries no store.
	workerService := synth.NewService(table, handle, manager, nil, log)
	natsWorker := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.SpeechRequestedSubject,
		cfg.NATS.SpeechSynthesizedSubject,
		store,
		workerService,
		log,
	)

	go func() {
		workerErrChan <- natsWorker.Run(ctx)
	}()

	log.System("NATS worker listening on subject: %s", cfg.NATS.SpeechRequestedSubject)

	return store, workerErrChan, natsConnection.Close, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway exited with error: %v\n", err)
		os.Exit(1)
	}
}
