package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	jwks "github.com/verikey/go-jwks"
)

var (
	uri = flag.String("jwks-uri", "", "JWKS endpoint, e.g. https://YOUR_DOMAIN/.well-known/jwks.json")
	kid = flag.String("kid", "", "key id to resolve")
)

func main() {
	flag.Parse()

	client, err := jwks.New(*uri,
		jwks.WithCache(),
		jwks.WithRateLimit(10),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := client.GetSigningKey(ctx, *kid)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(key.PEM())
}
