/*
Copyright 2024 CollectiveHQ Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/collectivehq/payouts"
	"github.com/collectivehq/payouts/config"
	"github.com/collectivehq/payouts/database"
	"github.com/collectivehq/payouts/internal/notification"
)

// CLI encapsulates the root Cobra command.
type CLI struct {
	cmd *cobra.Command
}

// payoutsInstance holds the runtime Payouts service and its configuration,
// shared across subcommands.
type payoutsInstance struct {
	payouts *payouts.Payouts
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the Payouts service before any
// subcommand runs.
func preRun(app *payoutsInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("payouts.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupPayouts(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.payouts = service
		app.cnf = cnf

		return nil
	}
}

// setupPayouts wires the datasource and builds the Payouts service.
func setupPayouts(cfg *config.Configuration) (*payouts.Payouts, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := payouts.NewPayouts(db)
	if err != nil {
		return nil, fmt.Errorf("error creating payouts service: %v", err)
	}
	return service, nil
}

// NewCLI builds the command-line interface with its subcommands.
func NewCLI() *CLI {
	var configFile string
	app := &payoutsInstance{}

	var rootCmd = &cobra.Command{
		Use:   "payouts",
		Short: "Batch payout reconciliation",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./payouts.json", "Configuration file for payouts")
	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(pollCommands(app))

	return &CLI{cmd: rootCmd}
}

func (c CLI) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
