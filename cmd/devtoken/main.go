// Command devtoken prints an identity token for local testing:
//
//	devtoken -email dana@example.org -ttl 2h
//
// It signs with JWT_SECRET from the environment or .env.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-seating/internal/token"
)

func main() {
	email := flag.String("email", "", "email to put in the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	tok, err := token.Mint(os.Getenv("JWT_SECRET"), *email, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("cannot mint token")
	}
	fmt.Println(tok.Raw)
}
