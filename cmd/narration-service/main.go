// main package for the narration-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/narration-service/internal/config"
	"github.com/book-expert/narration-service/internal/minimax"
	"github.com/book-expert/narration-service/internal/objectstore"
	"github.com/book-expert/narration-service/internal/worker"
)

const serviceLogFileName = "narration-service.log"

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, serviceLogFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// A temporary logger covers the bootstrap until the configured logs
	// directory is known.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
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

	return runWorker(cfg, finalLog)
}

// runWorker wires the speech client, the object store, and the NATS worker,
// then blocks until the process is signalled to stop.
func runWorker(cfg *config.Config, log *logger.Logger) error {
	synthesizer, err := buildSynthesizer(cfg)
	if err != nil {
		return err
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.TextProcessedSubject,
		store,
		synthesizer,
		worker.VoiceDefaults{
			VoiceID: cfg.Voice.VoiceID,
			Speed:   cfg.Voice.Speed,
			Volume:  cfg.Voice.Volume,
			Pitch:   cfg.Voice.Pitch,
		},
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	log.System(
		"Narration service initialized. Listening for jobs on subject: %s",
		cfg.NATS.TextProcessedSubject,
	)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped with error: %w", runErr)
	}

	return nil
}

// buildSynthesizer constructs the speech client from the loaded
// configuration. Missing credentials fail here, before any network call.
func buildSynthesizer(cfg *config.Config) (*minimax.Synthesizer, error) {
	client, err := minimax.NewClient(minimax.ClientConfig{
		BaseURL: cfg.MiniMax.BaseURL,
		Model:   cfg.MiniMax.Model,
		Credentials: minimax.Credentials{
			APIKey:  cfg.MiniMax.APIKey,
			GroupID: cfg.MiniMax.GroupID,
		},
		Timeout: time.Duration(cfg.MiniMax.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return minimax.NewSynthesizer(client, audioSettings(cfg)), nil
}

// audioSettings maps the audio configuration onto request parameters,
// falling back to the service defaults for unset fields.
func audioSettings(cfg *config.Config) minimax.AudioSettings {
	settings := minimax.DefaultAudioSettings()

	if cfg.Audio.SampleRate > 0 {
		settings.SampleRate = cfg.Audio.SampleRate
	}

	if cfg.Audio.Bitrate > 0 {
		settings.Bitrate = cfg.Audio.Bitrate
	}

	if cfg.Audio.Format != "" {
		settings.Format = cfg.Audio.Format
	}

	if cfg.Audio.Channel > 0 {
		settings.Channel = cfg.Audio.Channel
	}

	return settings
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
