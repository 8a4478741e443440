// Package chatshim documents the chat shim service.
//
// # Overview
//
// The shim lets OpenAI-compatible clients talk to a locally installed
// assistant CLI. A chat completion request is reduced to its most recent user
// message, which is handed to the CLI as
//
//	<command_path> --print <prompt>
//
// with the stored credential exported in the child's environment
// (CLAUDE_CODE_OAUTH_TOKEN unless SHIM_CREDENTIAL_ENV says otherwise). The
// CLI's standard output becomes the assistant message of a regular
// chat.completion response.
//
// # Settings
//
// The enabled flag, credential, command path and timeout live in a single
// JSON record (SHIM_SETTINGS_PATH). Administrators read it back with the
// credential masked: the first 15 and last 4 characters of long credentials,
// "***" for short ones. Posting a masked value back keeps the stored
// credential.
//
// # API Endpoints
//
//   - GET  /health: liveness, no authentication
//   - GET  /status: enabled flag, credential presence, CLI version (admin)
//   - GET  /settings, POST /settings: read and update the record (admin)
//   - POST /test: run one message through the CLI, always 200 (admin)
//   - POST /chat/completions, POST /v1/chat/completions: chat completions
//   - GET  /models, GET /v1/models: the single advertised model
//
// Errors use the OpenAI envelope {"error":{"message","type","code"}}. A
// disabled service answers 503, a missing credential 401, a request without
// a user message 400, a CLI that outlives its timeout 504 and a failed CLI
// 500.
//
// # Authentication
//
// Callers send "Authorization: Bearer <key>". Keys are checked in order:
//
//  1. DISABLE_AUTH: every request is an anonymous administrator
//  2. ADMIN_API_KEYS: administrator keys
//  3. VALID_API_KEYS: caller keys
//  4. HS256 caller tokens signed with SHIM_AUTH_SECRET (see "chat-shim token")
//
// # Limitations
//
// Streaming is not implemented; stream:true requests get a complete
// response. Earlier conversation turns are not forwarded to the CLI. Token
// usage is a whitespace word count.
package chatshim
