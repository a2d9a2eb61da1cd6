package main

import (
	"github.com/kcaldas/copilot/cmd/cli"
)

func main() {
	cli.Execute()
}
