package commands

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"strings"
)

const passwordEnv = "REQUISITION_PASSWORD"

func runLogin(ctx context.Context, env *environment, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password (or "+passwordEnv+", or first line of stdin)")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if *email == "" {
		return usagef("--email is required")
	}

	secret := *password
	if secret == "" {
		secret = env.runner.lookupEnv(passwordEnv)
	}
	if secret == "" && env.runner.Stdin != nil {
		line, err := bufio.NewReader(env.runner.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		secret = strings.TrimRight(line, "\r\n")
	}

	user, err := env.workspace.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	return env.printer.Profile(*user)
}

func runLogout(ctx context.Context, env *environment, args []string) error {
	if len(args) != 0 {
		return usagef("logout takes no arguments")
	}
	if err := env.workspace.Logout(ctx); err != nil {
		return err
	}
	return env.printer.Message("Logged out.")
}

func runWhoami(ctx context.Context, env *environment, args []string) error {
	if len(args) != 0 {
		return usagef("whoami takes no arguments")
	}
	user, err := env.workspace.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return env.printer.Profile(*user)
}

func (r *Runner) lookupEnv(key string) string {
	if r.Environ != nil {
		return r.Environ[key]
	}
	return os.Getenv(key)
}
