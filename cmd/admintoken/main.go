// Command admintoken prints a bearer token for the reload endpoint, signed
// with ADMIN_TOKEN_SECRET.
//
//	curl -X POST -H "Authorization: Bearer $(admintoken)" localhost:8080/api/pipeline/reload
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/social-analytics/internal/auth"
)

func main() {
	subject := flag.String("sub", "admin", "token subject")
	ttl := flag.Duration("ttl", auth.DefaultTTL, "token lifetime")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tokens, err := auth.NewTokenService(os.Getenv("ADMIN_TOKEN_SECRET"))
	if err != nil {
		logger.Error("cannot sign token", slog.String("error", err.Error()))
		os.Exit(1)
	}
	token, err := tokens.GenerateWithDuration(*subject, *ttl)
	if err != nil {
		logger.Error("cannot sign token", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(token)
}
