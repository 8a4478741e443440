/*
Package llm adapts OpenAI-style chat completion requests to a single
invocation of an external command-line assistant.

# Architecture Overview

The package follows the same layering as the rest of the service:

1. HTTP Handlers (handlers.go)
  - Provide the chat completions, models and test endpoints
  - Decode OpenAI-style requests and encode OpenAI-style responses
  - Map adapter errors to HTTP status codes

2. Service Layer (service.go)
  - Checks the enabled flag and the configured credential
  - Extracts the prompt and invokes the external CLI under a timeout
  - Assembles the chat.completion object

3. Runner (runner.go)
  - The only code that starts processes
  - Runs `<command_path> --print <prompt>` with the credential in the
    child's environment, capturing stdout and stderr separately
  - Tests replace it with an in-memory fake

4. Errors (errors.go)
  - One sentinel per failure kind, matched with errors.Is

# Request Flow

 1. A request arrives at /chat/completions (or /v1/chat/completions)
 2. The auth middleware resolves the caller
 3. The handler takes a snapshot of the settings record
 4. The service scans the messages newest first and takes the first user
    message; only that message becomes the prompt
 5. The runner executes the CLI; a timeout kills the child
 6. Trimmed stdout becomes the assistant message; an empty but successful
    run yields a fixed placeholder

# Limitations

Only the latest user message is forwarded. The max_context_messages and
stream_responses settings are stored and reported but do not change the
prompt or the response shape. Token usage is a whitespace word count, not a
tokenizer.

No call is retried: the CLI may have side effects.
*/
package llm
