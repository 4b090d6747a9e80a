package commands

import (
	"context"

	"github.com/vsinha/requisition/pkg/application/services/lifecycle"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

func runSubmit(ctx context.Context, env *environment, args []string) error {
	if len(args) != 0 {
		return usagef("submit takes no arguments")
	}

	result, err := env.workspace.SubmitCart(ctx)
	if err != nil {
		return err
	}
	if result.ClearErr != nil {
		env.warn("draft created but the saved cart could not be removed: %v", result.ClearErr)
	}
	if result.RefreshErr != nil {
		env.warn("could not refresh the request list: %s", describe(result.RefreshErr))
	}
	return env.printer.Request(*result.Record)
}

func runRequests(ctx context.Context, env *environment, args []string) error {
	if len(args) != 0 {
		return usagef("requests takes no arguments")
	}
	records, err := env.workspace.ListRequests(ctx)
	if err != nil {
		return err
	}
	return env.printer.Requests(records)
}

func runRequest(ctx context.Context, env *environment, args []string) error {
	if len(args) != 2 {
		return usagef("request needs a subcommand and a request id")
	}
	id, err := parseRequestID(args[1])
	if err != nil {
		return err
	}

	switch args[0] {
	case "show":
		record, err := env.workspace.RequestDetail(ctx, id)
		if err != nil {
			return err
		}
		return env.printer.Request(*record)
	case "submit":
		outcome, err := env.workspace.SubmitDraft(ctx, id)
		return env.printOutcome(outcome, err)
	case "receive":
		outcome, err := env.workspace.ConfirmReceipt(ctx, id)
		return env.printOutcome(outcome, err)
	default:
		return usagef("unknown request subcommand %q", args[0])
	}
}

// printOutcome shows the refreshed record after an action. The request
// list is refreshed even when the action was rejected.
func (env *environment) printOutcome(outcome *lifecycle.ActionOutcome, err error) error {
	if outcome != nil && outcome.RefreshErr != nil {
		env.warn("could not refresh the request list: %s", describe(outcome.RefreshErr))
	}
	if err != nil {
		return err
	}

	if record, ok := findRecord(outcome.Requests, outcome.RequestID); ok {
		return env.printer.Request(record)
	}
	if outcome.Result != nil && outcome.Result.Record != nil {
		return env.printer.Request(*outcome.Result.Record)
	}
	if outcome.Result != nil && outcome.Result.Message != "" {
		return env.printer.Message("%s", outcome.Result.Message)
	}
	return env.printer.Message("Request %d: %s done.", outcome.RequestID, outcome.Action)
}

func findRecord(records []entities.RequestRecord, id entities.RequestID) (entities.RequestRecord, bool) {
	for _, record := range records {
		if record.ID == id {
			return record, true
		}
	}
	return entities.RequestRecord{}, false
}
