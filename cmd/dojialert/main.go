package main

import (
	_ "time/tzdata" // Asia/Kolkata on hosts without a zoneinfo database

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/gopalvishwakrma/dojialert/cmd/dojialert/cmd"
)

func main() {
	cmd.Execute()
}
