// Package utils provides small helpers shared by the shim's commands and
// services: environment lookups with defaults and log-safe token masking.
package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnvWithDefault retrieves an environment variable or returns a default value if not set.
//
// Parameters:
//   - name: The name of the environment variable
//   - defaultValue: The default value to return if the environment variable is not set
//
// Returns the value of the environment variable, or the default value if not set.
func GetEnvWithDefault(name, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt reads an integer environment variable. Unset or malformed values
// yield defaultValue.
func GetEnvInt(name string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvBool reads a boolean environment variable. "1", "true", "yes" and
// "on" (any case) are true; unset or unrecognized values yield defaultValue.
func GetEnvBool(name string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// GetEnvList splits a comma-separated environment variable, trimming
// whitespace and dropping empty entries.
func GetEnvList(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		// Values copied out of .env files sometimes keep their quotes.
		part = strings.Trim(strings.TrimSpace(part), "'\"")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MaskToken masks a token for log output by showing only the first and last
// four characters.
func MaskToken(token string) string {
	if len(token) < 10 {
		return "***" // Too short to safely show anything
	}
	return token[:4] + "..." + token[len(token)-4:]
}
