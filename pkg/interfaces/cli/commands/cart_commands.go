package commands

import (
	"context"
	"flag"
	"io"

	"github.com/vsinha/requisition/pkg/application/services/catalog"
	"github.com/vsinha/requisition/pkg/application/services/orchestration"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/csv"
)

func runStock(ctx context.Context, env *environment, args []string) error {
	fs := flag.NewFlagSet("stock", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.String("search", "", "Only show variants whose code, type or name contains TEXT")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}

	levels, err := env.workspace.ListStock(ctx)
	if err != nil {
		return err
	}
	return env.printer.Stock(catalog.Filter(levels, *search))
}

func runCart(ctx context.Context, env *environment, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "show":
		if len(rest) != 0 {
			return usagef("cart show takes no arguments")
		}
		lines, err := env.workspace.CartLines(ctx)
		if err != nil {
			return err
		}
		return env.printer.Cart(lines)

	case "add", "set":
		if len(rest) != 2 {
			return usagef("cart %s needs a variant id and a quantity", sub)
		}
		id, err := parseVariantID(rest[0])
		if err != nil {
			return err
		}
		quantity, err := parseQuantity(rest[1])
		if err != nil {
			return err
		}
		if sub == "add" {
			lines, err := env.workspace.AddToCart(ctx, id, quantity)
			if err != nil {
				return err
			}
			return env.printer.Cart(lines)
		}
		if _, ok := env.workspace.Cart.Lines().Line(id); !ok {
			env.warn("variant %d is not in the cart, nothing changed", id)
		}
		lines, err := env.workspace.SetCartQuantity(ctx, id, quantity)
		if err != nil {
			return err
		}
		return env.printer.Cart(lines)

	case "remove":
		if len(rest) != 1 {
			return usagef("cart remove needs a variant id")
		}
		id, err := parseVariantID(rest[0])
		if err != nil {
			return err
		}
		lines, err := env.workspace.RemoveFromCart(ctx, id)
		if err != nil {
			return err
		}
		return env.printer.Cart(lines)

	case "clear":
		if len(rest) != 0 {
			return usagef("cart clear takes no arguments")
		}
		if err := env.workspace.ClearCart(ctx); err != nil {
			return err
		}
		return env.printer.Message("Cart cleared.")

	case "import":
		if len(rest) != 1 {
			return usagef("cart import needs a CSV file")
		}
		rows, err := csv.NewLoader().LoadCart(rest[0])
		if err != nil {
			return err
		}
		lines := make([]orchestration.ImportLine, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, orchestration.ImportLine{Row: row.Row, VariantID: row.VariantID, Quantity: row.Quantity})
		}
		cart, err := env.workspace.ImportLines(ctx, lines)
		if err != nil {
			return err
		}
		return env.printer.Cart(cart)

	default:
		return usagef("unknown cart subcommand %q", sub)
	}
}
