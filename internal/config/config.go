// Package config loads the shim's server configuration from the environment.
package config

import (
	"os"
	"time"

	"chat-shim/pkg/utils"
)

const (
	// DefaultAddr matches the port the sidecar deployment has always used.
	DefaultAddr = ":8100"

	// DefaultSettingsPath is where the settings record lives unless
	// SHIM_SETTINGS_PATH says otherwise.
	DefaultSettingsPath = "data/chat_shim_settings.json"

	// DefaultCredentialEnv is the variable the external CLI reads its
	// credential from.
	DefaultCredentialEnv = "CLAUDE_CODE_OAUTH_TOKEN"

	// DefaultModelID is advertised by /models and used when a request omits
	// the model field.
	DefaultModelID = "claude-code"

	// DefaultTestTimeout bounds the interactive /test endpoint.
	DefaultTestTimeout = 10 * time.Second
)

// Config contains configuration for the chat shim service.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string
	// SettingsPath is the JSON file backing the settings store.
	SettingsPath string

	// AuthSecret signs caller tokens. Empty disables JWT callers.
	AuthSecret string
	// APIKeys are static bearer keys granting regular caller access.
	APIKeys []string
	// AdminAPIKeys are static bearer keys granting administrator access.
	AdminAPIKeys []string
	// DisableAuth accepts every request as an anonymous administrator.
	DisableAuth bool

	// CredentialEnv names the environment variable the credential is passed in.
	CredentialEnv string
	// CredentialPrefix, when set, is required on every stored credential.
	CredentialPrefix string
	// ModelID is the model identifier advertised to clients.
	ModelID string

	// TestTimeout overrides the configured timeout for /test.
	TestTimeout time.Duration
	// MaxConcurrent bounds concurrent child processes. Zero means unbounded.
	MaxConcurrent int

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Addr:          DefaultAddr,
		SettingsPath:  DefaultSettingsPath,
		CredentialEnv: DefaultCredentialEnv,
		ModelID:       DefaultModelID,
		TestTimeout:   DefaultTestTimeout,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// Load builds a Config from environment variables, falling back to Default
// for anything unset. Callers are expected to have loaded any .env file
// beforehand.
func Load() Config {
	def := Default()

	testTimeout := def.TestTimeout
	if secs := utils.GetEnvInt("SHIM_TEST_TIMEOUT", 0); secs > 0 {
		testTimeout = time.Duration(secs) * time.Second
	}

	maxConcurrent := utils.GetEnvInt("SHIM_MAX_CONCURRENT", 0)
	if maxConcurrent < 0 {
		maxConcurrent = 0
	}

	return Config{
		Addr:             utils.GetEnvWithDefault("SHIM_ADDR", def.Addr),
		SettingsPath:     utils.GetEnvWithDefault("SHIM_SETTINGS_PATH", def.SettingsPath),
		AuthSecret:       os.Getenv("SHIM_AUTH_SECRET"),
		APIKeys:          utils.GetEnvList("VALID_API_KEYS"),
		AdminAPIKeys:     utils.GetEnvList("ADMIN_API_KEYS"),
		DisableAuth:      utils.GetEnvBool("DISABLE_AUTH", false),
		CredentialEnv:    utils.GetEnvWithDefault("SHIM_CREDENTIAL_ENV", def.CredentialEnv),
		CredentialPrefix: os.Getenv("SHIM_CREDENTIAL_PREFIX"),
		ModelID:          utils.GetEnvWithDefault("SHIM_MODEL_ID", def.ModelID),
		TestTimeout:      testTimeout,
		MaxConcurrent:    maxConcurrent,
		LogLevel:         utils.GetEnvWithDefault("SHIM_LOG_LEVEL", def.LogLevel),
		LogFormat:        utils.GetEnvWithDefault("SHIM_LOG_FORMAT", def.LogFormat),
		LogFile:          os.Getenv("SHIM_LOG_FILE"),
	}
}

// AuthConfigured reports whether any caller could ever authenticate.
func (c Config) AuthConfigured() bool {
	return c.DisableAuth || c.AuthSecret != "" ||
		len(c.APIKeys) > 0 || len(c.AdminAPIKeys) > 0
}
