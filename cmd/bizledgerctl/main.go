package main

import (
	"bizledger/internal/cli"
	"bizledger/internal/ctl"
)

func main() {
	cli.LoadEnvFile()
	ctl.Execute()
}
