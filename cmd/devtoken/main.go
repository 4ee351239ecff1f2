// Command devtoken prints a signed access token for local testing.
//
//	go run ./cmd/devtoken -sub seller1 -role Seller
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	model "vehicle-auction/internal/models"
	"vehicle-auction/utils"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "user1", "subject (user id)")
	role := flag.String("role", string(model.RoleBuyer), "role: Buyer, Seller or Admin")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret, defaults to $JWT_SECRET")
	flag.Parse()

	switch model.Role(*role) {
	case model.RoleBuyer, model.RoleSeller, model.RoleAdmin:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
	if *secret == "" {
		*secret = "dev-secret"
	}

	tok, err := utils.NewAccessToken(*secret, *sub, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
