// Chat shim server
//
// This application exposes an OpenAI-compatible chat completions API in front
// of a locally installed assistant CLI. Each completion request runs
// `<command_path> --print <prompt>` once with the stored credential in the
// child's environment, and the CLI's output becomes the assistant message.
//
// CLI Usage:
//
//	chat-shim [serve]            Start the HTTP server (default).
//	chat-shim token --subject x  Mint a caller token signed with SHIM_AUTH_SECRET.
//	chat-shim settings           Print the stored settings, credential masked.
//	chat-shim test [message]     Run one message through the CLI and print the result.
//	chat-shim version            Print the build version.
//
// Environment Variables:
//   - SHIM_ADDR: Listen address (default ":8100")
//   - SHIM_SETTINGS_PATH: Settings file (default "data/chat_shim_settings.json")
//   - SHIM_AUTH_SECRET: Secret for signing and validating caller tokens
//   - VALID_API_KEYS: Comma-separated list of caller API keys
//   - ADMIN_API_KEYS: Comma-separated list of administrator API keys
//   - DISABLE_AUTH: Set to "true" or "1" to accept every request as an administrator
//   - SHIM_CREDENTIAL_ENV: Variable the credential is passed in (default "CLAUDE_CODE_OAUTH_TOKEN")
//   - SHIM_CREDENTIAL_PREFIX: Required prefix for stored credentials
//   - SHIM_MODEL_ID: Advertised model id (default "claude-code")
//   - SHIM_TEST_TIMEOUT: Seconds allowed for test invocations (default 10)
//   - SHIM_MAX_CONCURRENT: Maximum concurrent CLI processes (default unbounded)
//   - SHIM_LOG_LEVEL, SHIM_LOG_FORMAT, SHIM_LOG_FILE: Logging options
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFile loads environment variables from a .env file if present.
// It attempts to load from the current directory and parent directories
// up to the root directory.
func loadEnvFile() {
	// Try current directory first
	err := godotenv.Load()
	if err == nil {
		log.Println("Loaded environment variables from .env file in current directory")
		return
	}

	workDir, err := os.Getwd()
	if err != nil {
		log.Printf("Warning: Could not determine current directory: %v", err)
		return
	}

	// Try parent directories recursively
	for dir := workDir; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			err = godotenv.Load(envPath)
			if err == nil {
				log.Printf("Loaded environment variables from %s", envPath)
				return
			}
		}
	}

	log.Println("No .env file found. Using existing environment variables.")
}

func main() {
	loadEnvFile()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
