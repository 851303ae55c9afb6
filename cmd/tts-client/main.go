// main package for the tts-client, a small command-line consumer of the
// gateway's HTTP API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Flag names.
const (
	flagText      = "text"
	flagLanguage  = "language"
	flagCharacter = "character"
	flagOutput    = "output"
	flagURL       = "url"
	flagHealth    = "health"
	flagTimeout   = "timeout"
)

// Flag descriptions.
const (
	flagTextDesc      = "Text to convert to speech"
	flagLanguageDesc  = "Text language (display name or engine tag)"
	flagCharacterDesc = "Character preset name"
	flagOutputDesc    = "Output file path (.wav)"
	flagURLDesc       = "Gateway base URL"
	flagHealthDesc    = "Check gateway health and exit"
	flagTimeoutDesc   = "Request timeout"
)

// Defaults.
const (
	defaultLanguage = "中文"
	defaultOutput   = "output.wav"
	defaultURL      = "http://localhost:9880"
	defaultTimeout  = 5 * time.Minute
)

// API paths.
const (
	inferencePath = "/api/tts/inference"
	healthPath    = "/health"
)

// Messages.
const (
	msgHealthy   = "gateway is healthy"
	msgGenerated = "Generated: %s\n"
)

// Static errors.
var (
	// ErrTextRequired indicates no text was given.
	ErrTextRequired = errors.New("--text is required")
	// ErrUnexpectedStatus indicates a non-200 gateway response.
	ErrUnexpectedStatus = errors.New("unexpected gateway response")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text      string
	language  string
	character string
	output    string
	url       string
	health    bool
	timeout   time.Duration
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.language, flagLanguage, defaultLanguage, flagLanguageDesc)
	flag.StringVar(&flags.character, flagCharacter, "", flagCharacterDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutput, flagOutputDesc)
	flag.StringVar(&flags.url, flagURL, defaultURL, flagURLDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)
	flag.Parse()

	return flags
}

func run() error {
	flags := parseFlags()

	client := &http.Client{Timeout: flags.timeout}

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	if flags.health {
		return checkHealth(ctx, client, flags.url)
	}

	if flags.text == "" {
		return ErrTextRequired
	}

	return synthesize(ctx, client, flags)
}

func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, baseURL+healthPath, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	fmt.Println(msgHealthy)

	return nil
}

func synthesize(ctx context.Context, client *http.Client, flags appFlags) error {
	body, err := json.Marshal(map[string]string{
		"character_name": flags.character,
		"text":           flags.text,
		"text_language":  flags.language,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, flags.url+inferencePath, bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to create inference request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, detail)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio response: %w", err)
	}

	err = os.WriteFile(flags.output, audio, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", flags.output, err)
	}

	fmt.Printf(msgGenerated, flags.output)

	return nil
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}
