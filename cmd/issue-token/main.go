package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stemsi/exampro-backend/internal/config"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/service"
	"golang.org/x/term"
)

// issue-token mints a signed access token for local development. Real
// deployments receive tokens from the identity provider.
func main() {
	var (
		userID int64
		role   string
	)
	flag.Int64Var(&userID, "user", 0, "User ID to embed in the token")
	flag.StringVar(&role, "role", string(model.RoleStudent), "Role: student, teacher or admin")
	flag.Parse()

	if userID <= 0 {
		log.Fatal("-user must be a positive id")
	}
	r := model.Role(role)
	if !r.Valid() {
		log.Fatalf("Unknown role %q", role)
	}

	cfg := config.Load()
	token, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry).IssueToken(userID, r)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	// Keep stdout pipeable; the banner only goes to interactive shells.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintf(os.Stderr, "Token for user %d (%s), valid for %s:\n", userID, r, cfg.JWTExpiry)
	}
	fmt.Println(token)
}
