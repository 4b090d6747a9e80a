package commands

import (
	"context"

	"github.com/vsinha/requisition/pkg/interfaces/cli/output"
)

// runDiag reports what this invocation observed: session state, whether the
// cart journal replays to the live cart, and backend calls made so far
func runDiag(ctx context.Context, env *environment, args []string) error {
	if len(args) != 0 {
		return usagef("diag takes no arguments")
	}

	ws := env.workspace
	if _, err := ws.Session.AwaitResolved(ctx); err != nil {
		return err
	}

	d := output.Diagnostics{
		Session:   ws.Session.State().String(),
		CartLines: len(ws.Cart.Lines()),
		Events:    len(ws.Events()),
	}
	if user := ws.Session.User(); user != nil {
		d.User = user.Email
	}

	replayed, err := ws.JournalReplay()
	if err != nil {
		return err
	}
	d.ReplayLines = len(replayed)

	calls, err := env.metrics.Counts()
	if err != nil {
		return err
	}
	d.Calls = calls

	return env.printer.Diag(d)
}
