package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"chat-shim/internal/auth"
	"chat-shim/pkg/utils"
)

// AnalyzeToken describes what kind of caller credential token is.
func AnalyzeToken(token string) string {
	if token == "" {
		return "ERROR: Token is empty"
	}

	result := fmt.Sprintf("Token length: %d\n", len(token))

	if strings.HasPrefix(token, "Bearer ") {
		result += "WARNING: Token starts with 'Bearer ' prefix, which is added by the client\n"
		token = strings.TrimPrefix(token, "Bearer ")
	}

	if strings.Count(token, ".") != 2 {
		result += "Token is not a JWT; the shim will treat it as a static API key\n"
		return result
	}

	claims := &auth.CallerClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		result += fmt.Sprintf("ERROR: Token looks like a JWT but does not parse: %v\n", err)
		return result
	}

	result += "✓ Token is a caller JWT\n"
	result += fmt.Sprintf("- Subject: %s\n", claims.Subject)
	result += fmt.Sprintf("- Name: %s\n", claims.Name)
	result += fmt.Sprintf("- Admin: %v\n", claims.Admin)
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		state := "valid"
		if time.Now().After(exp) {
			state = "EXPIRED"
		}
		result += fmt.Sprintf("- Expires: %s (%s)\n", exp.Format(time.RFC3339), state)
	} else {
		result += "WARNING: Token has no expiry\n"
	}

	return result
}

// DisplayTokenAnalysis prints the token analysis and, when a secret is
// known, whether the shim would accept the token.
func DisplayTokenAnalysis(token, secret string) {
	fmt.Println("\n🔍 Token Debug Information")
	fmt.Println("----------------------------")
	fmt.Printf("Token format: %s\n", utils.MaskToken(token))
	fmt.Print(AnalyzeToken(token))

	if secret != "" {
		caller, err := auth.ValidateCallerToken(token, secret)
		if err != nil {
			fmt.Printf("Signature check: FAILED (%v)\n", err)
		} else {
			fmt.Printf("Signature check: OK (caller %s, admin=%v)\n",
				caller.ID, caller.Admin)
		}
	}
	fmt.Println("----------------------------")
}
