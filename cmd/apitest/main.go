// Package main implements a CLI tool for exercising a running chat shim
// through its OpenAI-compatible API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"chat-shim/pkg/utils"
)

func main() {
	baseURL := flag.String("base-url", utils.GetEnvWithDefault("SHIM_BASE_URL", "http://localhost:8100/v1"), "Base URL of the shim's OpenAI API")
	apiKey := flag.String("api-key", os.Getenv("SHIM_API_KEY"), "Caller API key or token")
	model := flag.String("model", "claude-code", "Model to request")
	prompt := flag.String("prompt", "Hello, what can you do?", "The prompt to send")
	timeout := flag.Duration("timeout", 90*time.Second, "Request timeout")
	listModels := flag.Bool("models", false, "List models before sending the prompt")
	debugToken := flag.Bool("debug-token", false, "Print token debugging information")
	flag.Parse()

	if *apiKey == "" {
		log.Fatal("No API key: pass -api-key or set SHIM_API_KEY")
	}

	fmt.Println("🚀 Chat Shim API Tester")
	fmt.Println("----------------------------")
	fmt.Printf("Base URL: %s\n", *baseURL)
	fmt.Printf("API key: %s\n", utils.MaskToken(*apiKey))
	fmt.Printf("Model: %s\n", *model)
	fmt.Printf("Prompt: %s\n", *prompt)

	if *debugToken {
		DisplayTokenAnalysis(*apiKey, os.Getenv("SHIM_AUTH_SECRET"))
	}

	client := openai.NewClient(
		option.WithAPIKey(*apiKey),
		option.WithBaseURL(*baseURL),
		option.WithHTTPClient(&http.Client{Timeout: *timeout}),
		option.WithMaxRetries(0),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *listModels {
		page, err := client.Models.List(ctx)
		if err != nil {
			log.Fatalf("Error listing models: %v", describe(err))
		}
		fmt.Println("\nAvailable models:")
		for _, m := range page.Data {
			fmt.Printf("- %s (owned by %s)\n", m.ID, m.OwnedBy)
		}
	}

	fmt.Println("\nSending chat completion request...")
	start := time.Now()
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(*model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(*prompt),
		},
	})
	if err != nil {
		log.Fatalf("Error: %v", describe(err))
	}

	if len(completion.Choices) == 0 {
		log.Fatal("Error: response carried no choices")
	}

	fmt.Printf("Response received in %s:\n", time.Since(start).Round(time.Millisecond))
	fmt.Println("----------------------------")
	fmt.Println(completion.Choices[0].Message.Content)
	fmt.Println("----------------------------")
	fmt.Printf("id=%s finish_reason=%s prompt_tokens=%d completion_tokens=%d\n",
		completion.ID, completion.Choices[0].FinishReason,
		completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
}

// describe adds the HTTP status to API errors.
func describe(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("HTTP %d: %s", apiErr.StatusCode, apiErr.Message)
	}
	return err.Error()
}
