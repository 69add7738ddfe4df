package main

import (
	"os"

	"github.com/publisher-tools/publisher/cmd/publishctl/publishctlcmd"
)

func main() {
	os.Exit(publishctlcmd.Main())
}
