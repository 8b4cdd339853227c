// Command clinicctl drives the clinic client from a terminal: sign in, make
// authenticated API calls and see where the route gate would send you.
package main

import (
	"github.com/jrsteele09/go-clinic-client/cmd/clinicctl/cmd"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cmd.Execute()
}
