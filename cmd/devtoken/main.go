// Mints a bearer token for local testing, signed with the same key and issuer
// the server reads from the environment. Run with -role organizer or
// -role volunteer; -user defaults to a fresh UUID.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	jwttoken "volunteerhub/internal/jwt_token"
	"volunteerhub/internal/platform/config"
	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/requestcontext"
)

func main() {
	role := flag.String("role", string(requestcontext.RoleVolunteer), "Role claim: organizer or volunteer")
	user := flag.String("user", "", "User UUID (random when empty)")
	ttl := flag.Duration("ttl", 12*time.Hour, "Token lifetime")
	flag.Parse()

	logger := slog.Default()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	r := requestcontext.Role(*role)
	if !r.Valid() {
		fmt.Fprintf(os.Stderr, "unknown -role %q\n", *role)
		os.Exit(1)
	}

	userID := id.NewUserID()
	if *user != "" {
		userID, err = id.ParseUserID(*user)
		if err != nil {
			logger.Error("invalid -user", "error", err)
			os.Exit(1)
		}
	}

	token, err := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer).GenerateAccessToken(userID, r, *ttl)
	if err != nil {
		logger.Error("failed to sign token", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "user=%s role=%s\n", userID, r)
	fmt.Println(token)
}
