// Command crmctl imports, exports and administers donor CRM data from the
// command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/donorcrm/internal/core"
	_ "github.com/JonMunkholm/donorcrm/internal/core/entities"
	"github.com/JonMunkholm/donorcrm/internal/logging"
	"github.com/JonMunkholm/donorcrm/internal/store/postgres"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitValidation = 3
	exitDB         = 4
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode picks the exit code for err. Validation errors from the
// pipeline map to exitValidation even when not tagged.
func exitCode(err error) int {
	var ee *exitError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ee):
		return ee.code
	case core.IsValidation(err):
		return exitValidation
	default:
		return exitFailure
	}
}

// globalOptions are the persistent flags.
type globalOptions struct {
	databaseURL string
	logLevel    string
	user        string
}

func newRootCmd() *cobra.Command {
	var g globalOptions

	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Import, export and administer donor CRM data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(g.logLevel, "text")
		},
	}

	defaultURL := os.Getenv("DATABASE_URL")
	if defaultURL == "" {
		defaultURL = os.Getenv("DB_URL")
	}
	root.PersistentFlags().StringVar(&g.databaseURL, "database-url", defaultURL, "PostgreSQL connection string (default $DATABASE_URL)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.user, "user", "crmctl", "User id recorded in the audit log")

	root.AddCommand(
		newImportCmd(&g),
		newExportCmd(&g),
		newTemplateCmd(),
		newTokenCmd(),
		newMigrateCmd(&g),
		newResetCmd(&g),
	)
	return root
}

// openStore connects to the database named by the global flags.
func openStore(ctx context.Context, g *globalOptions) (*postgres.Store, error) {
	if g.databaseURL == "" {
		return nil, withCode(exitUsage, fmt.Errorf("--database-url or DATABASE_URL is required"))
	}
	st, err := postgres.Open(ctx, postgres.Config{URL: g.databaseURL, MaxConns: 4})
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return st, nil
}

// requester is the identity crmctl acts as. The CLI has direct database
// access, so it runs as an admin.
func (g *globalOptions) requester() core.Requester {
	return core.Requester{UserID: g.user, IsAdmin: true}
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", core.FormatUserError(err))
		fmt.Fprintln(os.Stderr, "detail:", err)
	}
	os.Exit(exitCode(err))
}
