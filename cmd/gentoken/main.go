// cmd/gentoken/main.go — prints a signed access token for local testing.
// Usage: go run ./cmd/gentoken -role chef -name "Cuisine" -ttl 12h
package main

import (
	"flag"
	"fmt"
	"log"
	"slices"
	"time"

	"economat/internal/config"
	"economat/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	role := flag.String("role", middleware.RoleSuperAdmin, "superadmin | deputydirector | chef")
	name := flag.String("name", "", "display name carried in the token")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	if !slices.Contains(middleware.Staff, *role) {
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		Name: *name,
		Role: *role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(signed)
}
