package migrate

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testDB returns a config for a fresh SQLite file and a second handle on the
// same file for setup and assertions.
func testDB(t *testing.T) (Config, *gorm.DB) {
	t.Helper()

	cfg := Config{DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "listings.db")}
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return cfg, db
}

func mustExec(t *testing.T, db *gorm.DB, query string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(query, args...).Error, query)
}

func rowCount(t *testing.T, db *gorm.DB, query string, args ...interface{}) int64 {
	t.Helper()
	n, err := count(db, query, args...)
	require.NoError(t, err)
	return n
}

// trackingRunner records whether a connection was opened and keeps it for
// inspection after Run returns.
func trackingRunner(cfg Config) (*Runner, *[]*gorm.DB) {
	var opened []*gorm.DB
	r := NewRunner(cfg, nil)
	r.open = func(c Config) (*gorm.DB, error) {
		db, err := Open(c)
		if err == nil {
			opened = append(opened, db)
		}
		return db, err
	}
	return r, &opened
}

func TestRunAppliesThenSkips(t *testing.T) {
	cfg, db := testDB(t)

	script := Script{
		Name: "create-widgets",
		Steps: []Step{{
			Name:   "create widgets",
			Guard:  hasTable("widgets"),
			Action: exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY)"),
		}},
	}

	r := NewRunner(cfg, nil)
	report, err := r.Run(context.Background(), script, Options{})
	require.NoError(t, err)
	assert.Equal(t, []StepReport{{Step: "create widgets", Outcome: Applied}}, report.Steps)
	assert.True(t, db.Migrator().HasTable("widgets"))

	report, err = r.Run(context.Background(), script, Options{})
	require.NoError(t, err)
	assert.Equal(t, []StepReport{{Step: "create widgets", Outcome: Skipped}}, report.Steps)
}

func TestRunRollsBackFailedStep(t *testing.T) {
	cfg, db := testDB(t)
	mustExec(t, db, "CREATE TABLE widgets (id INTEGER PRIMARY KEY)")

	boom := errors.New("boom")
	var lastRan bool
	script := Script{
		Name: "half-done",
		Steps: []Step{
			{Name: "first", Action: exec("INSERT INTO widgets (id) VALUES (1)")},
			{
				Name: "second",
				Action: func(_ context.Context, tx *gorm.DB) error {
					if err := tx.Exec("INSERT INTO widgets (id) VALUES (2)").Error; err != nil {
						return err
					}
					return boom
				},
			},
			{
				Name: "third",
				Action: func(context.Context, *gorm.DB) error {
					lastRan = true
					return nil
				},
			},
		},
	}

	report, err := NewRunner(cfg, nil).Run(context.Background(), script, Options{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `step "second"`)
	assert.Equal(t, []StepReport{
		{Step: "first", Outcome: Applied},
		{Step: "second", Outcome: Failed},
	}, report.Steps)
	assert.False(t, lastRan, "steps after a failure must not run")

	assert.Equal(t, int64(1), rowCount(t, db, "SELECT COUNT(*) FROM widgets"))
	assert.Equal(t, int64(0), rowCount(t, db, "SELECT COUNT(*) FROM widgets WHERE id = 2"))
}

func TestRunAutocommitKeepsPartialWork(t *testing.T) {
	cfg, db := testDB(t)
	mustExec(t, db, "CREATE TABLE widgets (id INTEGER PRIMARY KEY)")

	boom := errors.New("interrupted")
	script := Script{
		Name: "batch",
		Steps: []Step{{
			Name:       "batch insert",
			Autocommit: true,
			Action: func(_ context.Context, db *gorm.DB) error {
				if err := db.Exec("INSERT INTO widgets (id) VALUES (1)").Error; err != nil {
					return err
				}
				return boom
			},
		}},
	}

	report, err := NewRunner(cfg, nil).Run(context.Background(), script, Options{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, report.Steps[0].Outcome)
	assert.Equal(t, int64(1), rowCount(t, db, "SELECT COUNT(*) FROM widgets"))
}

func TestRunGuardErrorFailsStep(t *testing.T) {
	cfg, _ := testDB(t)

	var ran bool
	script := Script{
		Name: "bad-guard",
		Steps: []Step{{
			Name:  "needs widgets",
			Guard: hasColumn("widgets", "name"),
			Action: func(context.Context, *gorm.DB) error {
				ran = true
				return nil
			},
		}},
	}

	report, err := NewRunner(cfg, nil).Run(context.Background(), script, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table widgets does not exist")
	assert.Equal(t, Failed, report.Steps[0].Outcome)
	assert.False(t, ran)
}

func TestRunClosesConnection(t *testing.T) {
	cfg, _ := testDB(t)
	r, opened := trackingRunner(cfg)

	_, err := r.Run(context.Background(), Script{Name: "empty"}, Options{})
	require.NoError(t, err)
	require.Len(t, *opened, 1)

	sqlDB, err := (*opened)[0].DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping(), "connection should be closed after Run")
}

func TestRunPrecondition(t *testing.T) {
	r, opened := trackingRunner(Config{})

	report, err := r.Run(context.Background(), Script{Name: "anything", Destructive: true}, Options{})
	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Contains(t, precondition.Reason, "DATABASE_URL")
	assert.Empty(t, report.Steps)
	assert.Empty(t, *opened)
}

func TestRunDestructiveConfirmation(t *testing.T) {
	destructive := func(ran *bool) Script {
		return Script{
			Name:        "wipe-widgets",
			Destructive: true,
			Steps: []Step{{
				Name: "wipe",
				Action: func(context.Context, *gorm.DB) error {
					*ran = true
					return nil
				},
			}},
		}
	}

	tests := []struct {
		name    string
		opts    Options
		wantRun bool
	}{
		{name: "no input", opts: Options{}},
		{name: "wrong name", opts: Options{In: strings.NewReader("yes\n")}},
		{name: "empty line", opts: Options{In: strings.NewReader("\n")}},
		{name: "typed name", opts: Options{In: strings.NewReader("wipe-widgets\n")}, wantRun: true},
		{name: "typed name without newline", opts: Options{In: strings.NewReader("  wipe-widgets")}, wantRun: true},
		{name: "flag", opts: Options{Confirmed: true}, wantRun: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := testDB(t)
			r, opened := trackingRunner(cfg)

			var ran bool
			_, err := r.Run(context.Background(), destructive(&ran), tt.opts)
			if !tt.wantRun {
				require.ErrorIs(t, err, ErrConfirmationRequired)
				assert.Empty(t, *opened, "no connection may be opened before confirmation")
				assert.False(t, ran)
				return
			}
			require.NoError(t, err)
			assert.True(t, ran)
		})
	}
}

func TestConfirmPrompt(t *testing.T) {
	var out bytes.Buffer
	ok := confirm("reset-lookups", Options{In: strings.NewReader("reset-lookups\n"), Out: &out})
	assert.True(t, ok)
	assert.Contains(t, out.String(), "reset-lookups is destructive")
}

func TestOpen(t *testing.T) {
	_, err := Open(Config{})
	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)

	path := filepath.Join(t.TempDir(), "plain.db")
	db, err := Open(Config{DatabaseURL: path})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	assert.Equal(t, "sqlite", db.Dialector.Name())
	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "  postgres://localhost/listings  ")
	assert.Equal(t, "postgres://localhost/listings", ConfigFromEnv().DatabaseURL)

	t.Setenv("DATABASE_URL", "")
	assert.Error(t, ConfigFromEnv().check())
}
