// Package commands builds the listings-migrate command tree.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-listings/internal/migrate"
	"github.com/evcraddock/estate-listings/internal/property"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitError        = 1
	ExitPrecondition = 2
	ExitUnconfirmed  = 3
)

// Env carries what the commands need from main.
type Env struct {
	Config   migrate.Config
	Geocoder property.Geocoder
	Logger   *slog.Logger
	In       io.Reader // confirmation input for destructive scripts
}

// NewRootCmd creates the root command with one subcommand per script.
func NewRootCmd(env Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "listings-migrate",
		Short:         "Schema migration and data repair scripts for listings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	scripts := migrate.Catalog(env.Geocoder)
	root.AddCommand(ListCmd(scripts))
	for _, s := range scripts {
		root.AddCommand(scriptCmd(s, env))
	}
	return root
}

// ListCmd prints the available scripts.
func ListCmd(scripts []migrate.Script) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, name := range migrate.Names(scripts) {
				s, _ := migrate.Find(scripts, name)
				flag := ""
				if s.Destructive {
					flag = "destructive"
				}
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, flag, s.Description); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
}

func scriptCmd(s migrate.Script, env Env) *cobra.Command {
	var confirmed bool

	short := s.Description
	if s.Destructive {
		short += " (destructive)"
	}

	cmd := &cobra.Command{
		Use:   s.Name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := migrate.NewRunner(env.Config, env.Logger)
			report, err := runner.Run(cmd.Context(), s, migrate.Options{
				Confirmed: confirmed,
				In:        env.In,
				Out:       cmd.ErrOrStderr(),
			})
			for _, st := range report.Steps {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", st.Outcome, st.Step)
			}
			return err
		},
	}

	if s.Destructive {
		cmd.Flags().BoolVar(&confirmed, "confirm", false, "run without asking for confirmation")
	}
	return cmd
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var precondition *migrate.PreconditionError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &precondition):
		return ExitPrecondition
	case errors.Is(err, migrate.ErrConfirmationRequired):
		return ExitUnconfirmed
	default:
		return ExitError
	}
}
