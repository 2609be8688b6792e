package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/target/lms-gateway/internal/devseed"
)

type usersListOptions struct {
	Page int
	Size int
}

func parseUsersListFlags(args []string) (usersListOptions, error) {
	fs := flag.NewFlagSet("users-list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := usersListOptions{}
	fs.IntVar(&opts.Page, "page", 1, "1-based page number")
	fs.IntVar(&opts.Size, "size", 50, "Accounts per page (max 100)")

	if err := fs.Parse(args); err != nil {
		return usersListOptions{}, err
	}
	if opts.Page < 1 {
		return usersListOptions{}, errors.New("--page must be at least 1")
	}
	if opts.Size < 1 || opts.Size > 100 {
		return usersListOptions{}, errors.New("--size must be between 1 and 100")
	}
	return opts, nil
}

func runUsersSeed(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("users-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	password := fs.String("password", ctx.Config.DevBackend.SeedPassword, "Password for every seeded account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*password) == "" {
		return errors.New("--password is required")
	}

	accounts := devseed.DefaultAccounts()
	if err := devseed.Run(ctx.Ctx, ctx.Users, accounts, *password, ctx.Logger); err != nil {
		return err
	}
	return writef(ctx.Out, "Seeded %d accounts (existing accounts left unchanged)\n", len(accounts))
}

func runUsersList(ctx *commandContext, args []string) error {
	opts, err := parseUsersListFlags(args)
	if err != nil {
		return err
	}

	users, total, err := ctx.Users.ListUsers(ctx.Ctx, (opts.Page-1)*opts.Size, opts.Size)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "EMAIL\tNAME\tROLE\tACTIVE\tVERIFIED\tID"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, u := range users {
		if err := writef(w, "%s\t%s\t%s\t%t\t%t\t%s\n", u.Email, u.FullName, u.Role, u.Active, u.Verified, u.ID); err != nil {
			return fmt.Errorf("write row %q: %w", u.Email, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return writef(ctx.Out, "\n%d of %d accounts (page %d)\n", len(users), total, opts.Page)
}

func runUsersAssignRole(ctx *commandContext, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: users-assign-role <email> <role>")
	}
	u, err := ctx.Users.FindByEmail(ctx.Ctx, args[0])
	if err != nil {
		return fmt.Errorf("find %s: %w", args[0], err)
	}
	updated, err := ctx.Users.AssignRole(ctx.Ctx, u.ID, args[1])
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return writef(ctx.Out, "%s is now %s\n", updated.Email, updated.Role)
}

func runUsersToggle(ctx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: users-toggle <email>")
	}
	u, err := ctx.Users.FindByEmail(ctx.Ctx, args[0])
	if err != nil {
		return fmt.Errorf("find %s: %w", args[0], err)
	}
	updated, err := ctx.Users.ToggleActive(ctx.Ctx, u.ID)
	if err != nil {
		return fmt.Errorf("toggle active: %w", err)
	}
	state := "deactivated"
	if updated.Active {
		state = "activated"
	}
	return writef(ctx.Out, "%s %s\n", updated.Email, state)
}
