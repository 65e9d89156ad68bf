// main package for the narrate CLI: one-shot synthesis, batch segment
// rendering, the voice-cloning workflow, and narration-text generation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/book-expert/narration-service/internal/config"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/minimax"
	"github.com/book-expert/narration-service/internal/narration"
	"github.com/book-expert/narration-service/internal/pipeline"
	"github.com/book-expert/narration-service/internal/voiceclone"
)

// Flag names.
const (
	flagText        = "text"
	flagScripts     = "scripts"
	flagOutput      = "output"
	flagVoice       = "voice"
	flagCloneSample = "clone-sample"
	flagCloneVoice  = "clone-voice"
	flagCloneText   = "clone-text"
	flagPrompt      = "prompt"
	flagFallback    = "fallback"
	flagCheck       = "check"
)

// Flag descriptions.
const (
	flagTextDesc        = "Text to synthesize into speech"
	flagScriptsDesc     = "JSON file containing narration scripts to render"
	flagOutputDesc      = "Output file path (single synthesis) or directory (scripts)"
	flagVoiceDesc       = "Voice id override for synthesis"
	flagCloneSampleDesc = "Audio sample file to clone a voice from"
	flagCloneVoiceDesc  = "Voice id to register the clone under"
	flagCloneTextDesc   = "Narration text spoken with the cloned voice"
	flagPromptDesc      = "Prompt for narration-text generation"
	flagFallbackDesc    = "Fallback narration text when every model fails"
	flagCheckDesc       = "Validate the configuration and credentials, then exit"
)

// Error and log messages.
const (
	errNoModeSelected   = "one of --text, --scripts, --clone-sample, --prompt, or --check must be provided"
	errCloneVoiceNeeded = "--clone-voice is required with --clone-sample"
	errNoModelsChained  = "no narration models configured"
	msgConfigurationOK  = "Configuration is valid"
	logFileName         = "narrate.log"
	defaultOutputFile   = "output.mp3"
	defaultFallbackText = "This slide is part of the lecture. Please see the slide content for details."
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text        string
	scripts     string
	output      string
	voice       string
	cloneSample string
	cloneVoice  string
	cloneText   string
	prompt      string
	fallback    string
	check       bool
}

func main() {
	err := run()
	if err != nil {
		// The logger might not be initialized yet, so use the standard
		// log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	// Hydrate the environment from a local .env before configuration
	// loads; a missing file is fine.
	_ = godotenv.Load()

	flags := parseFlags()

	bootstrapLog, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer bootstrapLog.Close()

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return dispatch(cfg, bootstrapLog, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.scripts, flagScripts, "", flagScriptsDesc)
	flag.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.cloneSample, flagCloneSample, "", flagCloneSampleDesc)
	flag.StringVar(&flags.cloneVoice, flagCloneVoice, "", flagCloneVoiceDesc)
	flag.StringVar(&flags.cloneText, flagCloneText, "", flagCloneTextDesc)
	flag.StringVar(&flags.prompt, flagPrompt, "", flagPromptDesc)
	flag.StringVar(&flags.fallback, flagFallback, "", flagFallbackDesc)
	flag.BoolVar(&flags.check, flagCheck, false, flagCheckDesc)
	flag.Parse()

	return flags
}

// dispatch validates the flag combination and runs the selected workflow.
func dispatch(cfg *config.Config, appLog *logger.Logger, flags appFlags) error {
	validationErr := validateFlags(flags)
	if validationErr != nil {
		flag.Usage()

		return validationErr
	}

	switch {
	case flags.check:
		return checkConfiguration(cfg, appLog)
	case flags.prompt != "":
		return generateNarration(cfg, appLog, flags)
	case flags.cloneSample != "":
		return runCloneWorkflow(cfg, appLog, flags)
	case flags.scripts != "":
		return renderScripts(cfg, appLog, flags)
	default:
		return synthesizeText(cfg, appLog, flags)
	}
}

// validateFlags checks the flag combination before any workflow runs.
func validateFlags(flags appFlags) error {
	if flags.cloneSample != "" && flags.cloneVoice == "" {
		return errors.New(errCloneVoiceNeeded)
	}

	noModeSelected := !flags.check &&
		flags.prompt == "" &&
		flags.cloneSample == "" &&
		flags.scripts == "" &&
		flags.text == ""
	if noModeSelected {
		return errors.New(errNoModeSelected)
	}

	return nil
}

// checkConfiguration validates the loaded configuration without issuing any
// network call: the speech credentials must construct a client and the
// fallback chain must name at least one model.
func checkConfiguration(cfg *config.Config, appLog *logger.Logger) error {
	_, err := buildClient(cfg)
	if err != nil {
		appLog.Error("Configuration check failed: %v", err)
		fmt.Printf("Configuration is not valid: %v\n", err)

		return err
	}

	if len(cfg.Narration.Models) == 0 {
		appLog.Error("Configuration check failed: %s", errNoModelsChained)
		fmt.Printf("Configuration is not valid: %s\n", errNoModelsChained)

		return errors.New(errNoModelsChained)
	}

	fmt.Println(msgConfigurationOK)

	return nil
}

// buildClient constructs the speech client from configuration.
func buildClient(cfg *config.Config) (*minimax.Client, error) {
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

	return client, nil
}

// voiceSettings resolves the voice parameters for one-shot synthesis from the
// flag override and the configured defaults.
func voiceSettings(cfg *config.Config, voiceOverride string) minimax.VoiceSettings {
	voiceID := voiceOverride
	if voiceID == "" {
		voiceID = cfg.Voice.VoiceID
	}

	settings := minimax.DefaultVoiceSettings(voiceID)

	if cfg.Voice.Speed > 0 {
		settings.Speed = cfg.Voice.Speed
	}

	if cfg.Voice.Volume > 0 {
		settings.Volume = cfg.Voice.Volume
	}

	settings.Pitch = cfg.Voice.Pitch

	return settings
}

// audioSettings maps the audio configuration onto request parameters.
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

// synthesizeText performs one synthesis call and writes the audio to a file.
func synthesizeText(cfg *config.Config, appLog *logger.Logger, flags appFlags) error {
	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.MiniMax.TimeoutSeconds)*time.Second,
	)
	defer cancel()

	audio, err := client.SynthesizeSpeech(
		ctx,
		flags.text,
		voiceSettings(cfg, flags.voice),
		audioSettings(cfg),
	)
	if err != nil {
		appLog.Error("Failed to synthesize text: %v", err)

		return fmt.Errorf("failed to synthesize text: %w", err)
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = filepath.Join(cfg.Paths.OutputDir, defaultOutputFile)
	}

	err = writeAudioFile(outputPath, audio)
	if err != nil {
		return err
	}

	appLog.Info("Generated speech: %s (%d bytes)", outputPath, len(audio))
	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}

// renderScripts renders a JSON file of narration scripts into numbered
// segment files.
func renderScripts(cfg *config.Config, appLog *logger.Logger, flags appFlags) error {
	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	synthesizer := minimax.NewSynthesizer(client, audioSettings(cfg))

	voice := voiceSettings(cfg, flags.voice)
	engine := pipeline.New(synthesizer, pipeline.Options{
		VoiceID:           voice.VoiceID,
		Speed:             voice.Speed,
		Volume:            voice.Volume,
		Pitch:             voice.Pitch,
		InterRequestDelay: 0,
		RequestTimeout:    time.Duration(cfg.MiniMax.TimeoutSeconds) * time.Second,
	}, appLog)

	outputDir := flags.output
	if outputDir == "" {
		outputDir = cfg.Paths.OutputDir
	}

	err = engine.ProcessScripts(flags.scripts, outputDir)
	if err != nil {
		appLog.Error("Failed to render scripts: %v", err)

		return fmt.Errorf("failed to render scripts: %w", err)
	}

	fmt.Printf("Generated audio segments in: %s\n", outputDir)

	return nil
}

// runCloneWorkflow uploads a voice sample, registers a clone, and synthesizes
// a first narration with the cloned voice.
func runCloneWorkflow(cfg *config.Config, appLog *logger.Logger, flags appFlags) error {
	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	workflow := voiceclone.New(
		client,
		audioSettings(cfg),
		time.Duration(cfg.Clone.SettleDelaySeconds)*time.Second,
		appLog,
	)

	ctx, cancel := context.WithTimeout(
		context.Background(),
		3*time.Duration(cfg.MiniMax.TimeoutSeconds)*time.Second,
	)
	defer cancel()

	result := workflow.Run(ctx, flags.cloneSample, flags.cloneVoice, flags.cloneText)
	if result.Err != nil {
		appLog.Error("Voice clone workflow failed in state %s: %v", result.State, result.Err)

		return fmt.Errorf("voice clone workflow failed: %w", result.Err)
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = filepath.Join(
			cfg.Paths.OutputDir,
			fmt.Sprintf("cloned_%s.mp3", result.EffectiveVoiceID),
		)
	}

	err = writeAudioFile(outputPath, result.Audio)
	if err != nil {
		return err
	}

	fmt.Printf("Cloned voice id: %s\n", result.EffectiveVoiceID)
	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}

// generateNarration runs the fallback chain and prints the resulting script.
func generateNarration(cfg *config.Config, appLog *logger.Logger, flags appFlags) error {
	clientConfig := openai.DefaultConfig(cfg.Narration.APIKey)
	if cfg.Narration.BaseURL != "" {
		clientConfig.BaseURL = cfg.Narration.BaseURL
	}

	models := make([]narration.ModelPolicy, 0, len(cfg.Narration.Models))
	for _, model := range cfg.Narration.Models {
		models = append(models, narration.ModelPolicy{
			Name:        model.Name,
			MaxAttempts: model.MaxAttempts,
		})
	}

	var generator core.NarrationGenerator = narration.New(
		openai.NewClientWithConfig(clientConfig),
		narration.Config{
			Models:      models,
			BackoffBase: time.Duration(cfg.Narration.BackoffBaseSeconds) * time.Second,
			BackoffStep: time.Duration(cfg.Narration.BackoffStepSeconds) * time.Second,
			MinLength:   cfg.Narration.MinScriptLength,
		},
		appLog,
	)

	fallbackText := flags.fallback
	if fallbackText == "" {
		fallbackText = cfg.Narration.FallbackText
	}

	if fallbackText == "" {
		fallbackText = defaultFallbackText
	}

	script := generator.Generate(context.Background(), flags.prompt, fallbackText)
	fmt.Println(script)

	return nil
}

// writeAudioFile writes audio bytes to outputPath, creating parent
// directories as needed.
func writeAudioFile(outputPath string, audio []byte) error {
	dirErr := os.MkdirAll(filepath.Dir(outputPath), 0o750)
	if dirErr != nil {
		return fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	writeErr := os.WriteFile(outputPath, audio, 0o600)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	return nil
}
