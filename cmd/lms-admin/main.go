package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/target/lms-gateway/config"
	"github.com/target/lms-gateway/internal/bootstrap"
	"github.com/target/lms-gateway/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Out    io.Writer
	Users  *service.UserService
	Config config.AppConfig
}

func main() {
	logger := bootstrap.InitLogger(false)

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	if err := run(cmd, os.Args[2:], logger); err != nil {
		logger.Error("command failed", "command", cmdName, "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func run(cmd command, args []string, logger *slog.Logger) error {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The CLI always works against the shared Redis store.
	cfg.DevBackend.Store = config.StoreRedis

	client, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Error("close redis failed", "error", cerr)
		}
	}()

	users, err := bootstrap.NewUserService(ctx, &cfg, client, logger)
	if err != nil {
		return fmt.Errorf("init user service: %w", err)
	}

	return cmd.run(&commandContext{
		Ctx:    ctx,
		Logger: logger,
		Out:    os.Stdout,
		Users:  users,
		Config: cfg,
	}, args)
}

func commands() map[string]command {
	return map[string]command{
		"users-seed": {
			name:        "users-seed",
			description: "Create the admin, instructor, and student demo accounts",
			run:         runUsersSeed,
		},
		"users-list": {
			name:        "users-list",
			description: "List accounts (flags: --page, --size)",
			run:         runUsersList,
		},
		"users-assign-role": {
			name:        "users-assign-role",
			description: "Set an account's role: users-assign-role <email> <ADMIN|INSTRUCTOR|STUDENT>",
			run:         runUsersAssignRole,
		},
		"users-toggle": {
			name:        "users-toggle",
			description: "Activate or deactivate an account: users-toggle <email>",
			run:         runUsersToggle,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: lms-admin <command> [args]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-20s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
