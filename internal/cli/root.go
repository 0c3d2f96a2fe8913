// Package cli is the taskflow operator command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tgienger/taskflow/internal/audit"
	"github.com/tgienger/taskflow/internal/blob"
	"github.com/tgienger/taskflow/internal/catalog"
	"github.com/tgienger/taskflow/internal/config"
	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/lifecycle"
	"github.com/tgienger/taskflow/internal/projection"
	"github.com/tgienger/taskflow/internal/telemetry"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

const (
	settingProject = "project"
	settingActor   = "actor"

	// skipStore marks commands that run without opening the database.
	skipStore = "skip-store"
)

// BuildInfo is the version stamped into the binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app carries the services one command invocation uses.
type app struct {
	build BuildInfo
	out   io.Writer
	errw  io.Writer

	dbPath  string
	blobDir string
	actor   int64

	cfg      config.Config
	log      *logrus.Logger
	db       *db.DB
	blobs    *blob.Dir
	manager  *lifecycle.Manager
	statuses *catalog.Statuses
	labels   *catalog.Labels
	reader   *projection.Reader
	styles   *styles.Styles
	shutdown func(context.Context) error
}

// NewRootCommand builds the taskflow command tree writing reports to out
// and logs to errw.
func NewRootCommand(build BuildInfo, out, errw io.Writer) *cobra.Command {
	root, _ := newRoot(build, out, errw)
	return root
}

func newRoot(build BuildInfo, out, errw io.Writer) (*cobra.Command, *app) {
	a := &app{build: build, out: out, errw: errw, styles: styles.NewStyles()}

	root := &cobra.Command{
		Use:   "taskflow",
		Short: "Task lifecycle engine",
		Long: `taskflow drives the task lifecycle engine against a local SQLite database
and a local blob directory.

Configuration comes from TASKFLOW_* environment variables; the --db,
--blob-dir and --actor flags override them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
	}
	root.SetOut(out)
	root.SetErr(errw)

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database file (default $TASKFLOW_DB or the XDG data dir)")
	root.PersistentFlags().StringVar(&a.blobDir, "blob-dir", "", "attachment directory (default $TASKFLOW_BLOB_DIR)")
	root.PersistentFlags().Int64Var(&a.actor, "actor", 0, "acting user id (default $TASKFLOW_ACTOR or the saved actor)")

	root.AddCommand(
		a.projectCommand(),
		a.userCommand(),
		a.statusCommand(),
		a.labelCommand(),
		a.taskCommand(),
		a.commentCommand(),
		a.watchCommand(),
		a.attachCommand(),
		a.reconcileCommand(),
		a.versionCommand(),
	)
	return root, a
}

// Run executes one command line. The store is closed even when the command
// fails, which cobra's post-run hooks do not guarantee.
func Run(ctx context.Context, build BuildInfo, args []string, out, errw io.Writer) error {
	root, a := newRoot(build, out, errw)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(ctx); err == nil {
		err = cerr
	}
	return err
}

// Execute runs the CLI with os.Args.
func Execute(build BuildInfo) error {
	return Run(context.Background(), build, os.Args[1:], os.Stdout, os.Stderr)
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipStore] == "true" {
		return nil
	}
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.blobDir != "" {
		cfg.BlobDir = a.blobDir
	}
	if a.actor != 0 {
		cfg.Actor = a.actor
	}
	a.cfg = cfg

	if a.log, err = config.NewLogger(a.errw, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	policy, err := audit.ParsePolicy(cfg.AuditPolicy)
	if err != nil {
		return err
	}
	if a.shutdown, err = telemetry.Setup(ctx, "taskflow", cfg.OTelEndpoint); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if a.db, err = db.Open(ctx, cfg.DBPath); err != nil {
		return err
	}
	if a.blobs, err = blob.NewDir(cfg.BlobDir); err != nil {
		return err
	}

	a.statuses = catalog.NewStatuses(a.db, nil)
	a.labels = catalog.NewLabels(a.db, nil)
	a.reader = projection.NewReader(a.db.Queries, nil)
	a.manager = lifecycle.NewManager(a.db, lifecycle.Options{
		Blobs: a.blobs,
		Audit: audit.NewLogger(policy, nil),
		Log:   logrus.NewEntry(a.log).WithField("component", "lifecycle"),
	})
	a.log.WithFields(logrus.Fields{
		"db":           cfg.DBPath,
		"blob_dir":     cfg.BlobDir,
		"audit_policy": policy.Name(),
	}).Debug("store opened")
	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	return errors.Join(errs...)
}

// actorID resolves the acting user from the flag, the environment or the
// saved setting.
func (a *app) actorID(ctx context.Context) (int64, error) {
	if a.cfg.Actor != 0 {
		return a.cfg.Actor, nil
	}
	id, err := a.savedID(ctx, settingActor)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, apperrors.Invalid("no acting user: pass --actor, set TASKFLOW_ACTOR or run 'taskflow user add --use'")
	}
	return id, nil
}

// projectID resolves the project from the --project flag or the saved
// current project.
func (a *app) projectID(cmd *cobra.Command) (int64, error) {
	if f := cmd.Flags().Lookup("project"); f != nil && f.Changed {
		return parseID(f.Value.String(), "project")
	}
	id, err := a.savedID(cmd.Context(), settingProject)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, apperrors.Invalid("no project selected: pass --project or run 'taskflow project use <id>'")
	}
	return id, nil
}

func (a *app) savedID(ctx context.Context, key string) (int64, error) {
	value, err := a.db.GetSetting(ctx, key)
	if err != nil || value == "" {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

func (a *app) now() time.Time {
	return time.Now().UTC()
}

func addProjectFlag(cmd *cobra.Command) {
	cmd.Flags().Int64("project", 0, "project id (default the current project)")
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0, apperrors.Invalid("invalid %s id %q", what, s)
	}
	return id, nil
}
