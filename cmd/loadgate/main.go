package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/loadgate/cmd/loadgate/cmd"
	"github.com/armadaproject/loadgate/internal/common"
)

// Config is handled by cmd/loadgate/cmd/root.go
func main() {
	common.ConfigureCommandLineLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		log.Error(cmd.ErrorMessage(err))
		os.Exit(1)
	}
}
