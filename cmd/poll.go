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
	"context"
	"log"

	"github.com/spf13/cobra"
)

// pollCommands defines the "poll" command: a manual, one-shot poll of a
// provider batch, useful when a scheduled poll was lost or an operator wants
// to reconcile a batch immediately.
func pollCommands(app *payoutsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll <batch-id>",
		Short: "poll a payout batch once and reconcile its expenses",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			batchID := args[0]

			expenses, err := app.payouts.GetExpensesByBatchID(ctx, batchID)
			if err != nil {
				log.Fatalf("error loading expenses for batch %s: %v", batchID, err)
			}
			if len(expenses) == 0 {
				log.Fatalf("no expenses found for batch %s", batchID)
			}

			expenses, err = app.payouts.PollBatch(ctx, expenses)
			if err != nil {
				log.Fatalf("error polling batch %s: %v", batchID, err)
			}

			for _, expense := range expenses {
				log.Printf(" [*] expense %d -> %s", expense.ID, expense.Status)
			}
		},
	}

	return cmd
}
