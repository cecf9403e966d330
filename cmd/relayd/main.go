// relayd is the wallet relay daemon: it brokers page requests to the
// approval UI and keeps the encrypted account vault.
//
// @title                       Wallet Relay API
// @version                     1.0
// @description                 Loopback API of the wallet relay daemon: approvals, connected sites, session and encrypted accounts.
// @host                        127.0.0.1:8080
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/wallet-relay/internal/config"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
)

var mainCmd = &cobra.Command{
	Use:   "relayd",
	Short: "Wallet request relay and account vault",
}

func main() {
	mainCmd.AddCommand(serveCmd(), vaultCmd())

	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}

// bootstrap loads the environment config and opens the main logger
func bootstrap() (wlog.Logger, io.Closer, error) {
	if err := config.Init(); err != nil {
		return nil, nil, err
	}
	cfg := config.Get()

	level, err := wlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := wlog.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	log, closer, err := wlog.CreateMainLogger(level, format, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, closer, nil
}
