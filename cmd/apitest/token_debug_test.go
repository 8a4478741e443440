package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-shim/internal/auth"
)

func TestAnalyzeToken(t *testing.T) {
	require.Equal(t, "ERROR: Token is empty", AnalyzeToken(""))
	require.Contains(t, AnalyzeToken("plain-api-key"), "static API key")

	token, err := auth.CreateCallerToken("svc-1", "Service", true,
		"secret", time.Hour)
	require.NoError(t, err)

	out := AnalyzeToken("Bearer " + token)
	require.Contains(t, out, "WARNING: Token starts with 'Bearer '")
	require.Contains(t, out, "✓ Token is a caller JWT")
	require.Contains(t, out, "- Subject: svc-1")
	require.Contains(t, out, "- Admin: true")
	require.Contains(t, out, "(valid)")
}
