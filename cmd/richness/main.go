// Command richness analyses habitat effects on allelic richness with
// linear mixed models.
package main

import (
	"os"

	"github.com/roach88/richness/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:], os.Stdout, os.Stderr))
}
