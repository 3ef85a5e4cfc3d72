// Package migrate runs the one-off administrative scripts that bring an
// existing listings database to the current schema and repair its data.
//
// A script is an ordered list of steps. Each step has a guard that reports
// whether its target state already exists, so scripts can be re-run safely.
package migrate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

// ErrConfirmationRequired is returned when a destructive script is run
// without confirmation. Nothing has been changed when it is returned.
var ErrConfirmationRequired = errors.New("destructive script requires confirmation")

// PreconditionError reports missing configuration. Nothing has run.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// Step is one unit of a script.
type Step struct {
	Name string
	// Guard reports whether the step's target state already exists. A nil
	// Guard means the step always runs; its Action must then be idempotent.
	Guard func(ctx context.Context, db *gorm.DB) (bool, error)
	// Action performs the change. It receives a transaction unless
	// Autocommit is set, in which case it receives the connection itself.
	Action func(ctx context.Context, tx *gorm.DB) error
	// Autocommit marks batch loops whose items commit independently.
	Autocommit bool
}

// Script is a named, ordered list of steps.
type Script struct {
	Name        string
	Description string
	Destructive bool
	Steps       []Step
}

// Outcome is what happened to a step.
type Outcome string

const (
	Applied Outcome = "applied"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// StepReport records the outcome of one step.
type StepReport struct {
	Step    string
	Outcome Outcome
}

// Report lists the steps a run reached, in order.
type Report struct {
	Script string
	Steps  []StepReport
}

// Options control a single run.
type Options struct {
	// Confirmed skips the interactive confirmation of destructive scripts.
	Confirmed bool
	// In, when set, is read for a typed confirmation equal to the script name.
	In io.Reader
	// Out receives the confirmation prompt.
	Out io.Writer
}

// Runner executes scripts against the configured database.
type Runner struct {
	cfg    Config
	logger *slog.Logger
	open   func(Config) (*gorm.DB, error)
}

// NewRunner creates a runner. A nil logger uses slog.Default().
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger, open: Open}
}

// Run executes the script's steps in order. A failed step is rolled back and
// stops the script. The connection is always closed before Run returns.
func (r *Runner) Run(ctx context.Context, s Script, opts Options) (report Report, err error) {
	report.Script = s.Name

	if err := r.cfg.check(); err != nil {
		return report, err
	}
	if s.Destructive && !opts.Confirmed && !confirm(s.Name, opts) {
		r.logger.Warn("destructive script not confirmed", "script", s.Name)
		return report, ErrConfirmationRequired
	}

	db, err := r.open(r.cfg)
	if err != nil {
		return report, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return report, fmt.Errorf("getting connection: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing connection: %w", cerr)
		}
	}()

	ctx = withLogger(ctx, r.logger.With("script", s.Name))
	db = db.WithContext(ctx)
	for _, step := range s.Steps {
		outcome, err := r.runStep(ctx, db, s.Name, step)
		report.Steps = append(report.Steps, StepReport{Step: step.Name, Outcome: outcome})
		if err != nil {
			return report, fmt.Errorf("%s: step %q: %w", s.Name, step.Name, err)
		}
	}

	r.logger.Info("script finished", "script", s.Name, "steps", len(s.Steps))
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, db *gorm.DB, script string, step Step) (Outcome, error) {
	log := r.logger.With("script", script, "step", step.Name)
	ctx = withLogger(ctx, log)

	if step.Guard != nil {
		done, err := step.Guard(ctx, db)
		if err != nil {
			log.Error("step guard failed", "outcome", Failed, "error", err)
			return Failed, fmt.Errorf("checking guard: %w", err)
		}
		if done {
			log.Info("step already satisfied", "outcome", Skipped)
			return Skipped, nil
		}
	}

	if step.Autocommit {
		if err := step.Action(ctx, db); err != nil {
			log.Error("step failed", "outcome", Failed, "error", err)
			return Failed, err
		}
		log.Info("step applied", "outcome", Applied)
		return Applied, nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		log.Error("step failed", "outcome", Failed, "error", tx.Error)
		return Failed, fmt.Errorf("beginning transaction: %w", tx.Error)
	}
	if err := step.Action(ctx, tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			log.Error("rolling back step", "error", rbErr)
		}
		log.Error("step failed, rolled back", "outcome", Failed, "error", err)
		return Failed, err
	}
	if err := tx.Commit().Error; err != nil {
		log.Error("step failed", "outcome", Failed, "error", err)
		return Failed, fmt.Errorf("committing: %w", err)
	}

	log.Info("step applied", "outcome", Applied)
	return Applied, nil
}

// confirm asks for the script name on opts.In. Any read error counts as no.
func confirm(script string, opts Options) bool {
	if opts.In == nil {
		return false
	}
	if opts.Out != nil {
		_, _ = fmt.Fprintf(opts.Out, "%s is destructive. Type the script name to continue: ", script)
	}
	line, err := bufio.NewReader(opts.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	return strings.TrimSpace(line) == script
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// logger returns the step logger carried by ctx.
func logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
