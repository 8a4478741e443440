// Package settings owns the shim's persisted configuration record: the
// enabled flag, the CLI credential, the command path and the invocation
// limits. The record is a single JSON document; the credential is only ever
// handed out masked.
package settings

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultCommandPath is the CLI looked up on PATH when nothing else is
	// configured.
	DefaultCommandPath = "claude"
	// DefaultTimeoutSeconds bounds a chat completion invocation.
	DefaultTimeoutSeconds = 60
	// DefaultMaxContextMessages is advisory only; prompts carry a single
	// user message.
	DefaultMaxContextMessages = 10

	// MaskPlaceholder is the display form of short credentials.
	MaskPlaceholder = "***"

	maskSeparator  = "..."
	maskPrefixLen  = 15
	maskSuffixLen  = 4
	maskMinVisible = 20
)

var (
	// ErrPersist is returned when the settings record cannot be written.
	ErrPersist = errors.New("failed to persist settings")

	// ErrInvalid is returned when an update would store an unusable record.
	ErrInvalid = errors.New("invalid settings")
)

// Settings is the persisted configuration record. The JSON names match the
// record written by earlier deployments so existing files keep loading.
type Settings struct {
	Enabled            bool   `json:"enabled"`
	Credential         string `json:"oauth_token"`
	CommandPath        string `json:"command_path"`
	TimeoutSeconds     int    `json:"timeout"`
	StreamResponses    bool   `json:"stream_responses"`
	MaxContextMessages int    `json:"max_context_messages"`
}

// Default returns the record used before anything has been saved.
func Default() Settings {
	return Settings{
		Enabled:            false,
		CommandPath:        DefaultCommandPath,
		TimeoutSeconds:     DefaultTimeoutSeconds,
		StreamResponses:    false,
		MaxContextMessages: DefaultMaxContextMessages,
	}
}

// HasCredential reports whether a credential is configured.
func (s Settings) HasCredential() bool {
	return s.Credential != ""
}

// Masked returns a copy safe to hand to an administrator: the credential is
// replaced by its display form.
func (s Settings) Masked() Settings {
	s.Credential = Mask(s.Credential)
	return s
}

// PublicView is the status form of the record. It never carries the
// credential, only whether one is present.
type PublicView struct {
	Enabled            bool   `json:"enabled"`
	CommandPath        string `json:"command_path"`
	TimeoutSeconds     int    `json:"timeout"`
	StreamResponses    bool   `json:"stream_responses"`
	MaxContextMessages int    `json:"max_context_messages"`
	OAuthConfigured    bool   `json:"oauth_configured"`
}

// Public returns the status form of the record.
func (s Settings) Public() PublicView {
	return PublicView{
		Enabled:            s.Enabled,
		CommandPath:        s.CommandPath,
		TimeoutSeconds:     s.TimeoutSeconds,
		StreamResponses:    s.StreamResponses,
		MaxContextMessages: s.MaxContextMessages,
		OAuthConfigured:    s.HasCredential(),
	}
}

// Validate checks the fields an invocation depends on. A non-empty
// requiredPrefix must start every stored credential.
func (s Settings) Validate(requiredPrefix string) error {
	if strings.TrimSpace(s.CommandPath) == "" {
		return fmt.Errorf("%w: command_path must not be empty", ErrInvalid)
	}
	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if s.MaxContextMessages < 0 {
		return fmt.Errorf("%w: max_context_messages must not be negative", ErrInvalid)
	}
	if requiredPrefix != "" && s.Credential != "" &&
		!strings.HasPrefix(s.Credential, requiredPrefix) {

		return fmt.Errorf("%w: credential should start with %q",
			ErrInvalid, requiredPrefix)
	}
	return nil
}

// Mask returns the display form of a credential: the first 15 and last 4
// characters around "..." for credentials longer than 20 characters, the
// constant placeholder otherwise, and "" when nothing is set. It is a
// display transform only.
func Mask(credential string) string {
	switch {
	case credential == "":
		return ""
	case len(credential) > maskMinVisible:
		return credential[:maskPrefixLen] + maskSeparator +
			credential[len(credential)-maskSuffixLen:]
	default:
		return MaskPlaceholder
	}
}

// IsMasked reports whether value looks like a display form produced by Mask
// rather than a real credential.
func IsMasked(value string) bool {
	return strings.Contains(value, maskSeparator) ||
		strings.Contains(value, MaskPlaceholder)
}

// Patch is a partial update. Nil fields leave the stored value alone.
type Patch struct {
	Enabled            *bool   `json:"enabled"`
	Credential         *string `json:"oauth_token"`
	CommandPath        *string `json:"command_path"`
	TimeoutSeconds     *int    `json:"timeout"`
	StreamResponses    *bool   `json:"stream_responses"`
	MaxContextMessages *int    `json:"max_context_messages"`
}

// Apply returns current with the patch applied. A credential that is a
// masked display form resolves to the stored credential; an explicit empty
// string clears it.
func (p Patch) Apply(current Settings) Settings {
	next := current

	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	if p.Credential != nil {
		credential := strings.TrimSpace(*p.Credential)
		if !IsMasked(credential) {
			next.Credential = credential
		}
	}
	if p.CommandPath != nil {
		next.CommandPath = strings.TrimSpace(*p.CommandPath)
	}
	if p.TimeoutSeconds != nil {
		next.TimeoutSeconds = *p.TimeoutSeconds
	}
	if p.StreamResponses != nil {
		next.StreamResponses = *p.StreamResponses
	}
	if p.MaxContextMessages != nil {
		next.MaxContextMessages = *p.MaxContextMessages
	}

	return next
}

// PatchFrom builds a patch that sets every field of s.
func PatchFrom(s Settings) Patch {
	return Patch{
		Enabled:            &s.Enabled,
		Credential:         &s.Credential,
		CommandPath:        &s.CommandPath,
		TimeoutSeconds:     &s.TimeoutSeconds,
		StreamResponses:    &s.StreamResponses,
		MaxContextMessages: &s.MaxContextMessages,
	}
}
