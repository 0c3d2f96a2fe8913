// Package lifecycle owns task invariants: validation, status-driven
// timestamps, associations, auditing, and the unit of work that spans the
// task store and the blob store.
package lifecycle

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskflow/internal/audit"
	"github.com/tgienger/taskflow/internal/blob"
	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/projection"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tgienger/taskflow/internal/lifecycle"

// ProjectDirectory answers whether a project exists.
type ProjectDirectory interface {
	ProjectExists(ctx context.Context, id int64) (bool, error)
}

// UserDirectory answers whether a user exists.
type UserDirectory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}

// Options configures a Manager. Zero fields fall back to the store's own
// directories, the uniform audit policy, time.Now, the standard logrus
// logger and the global tracer provider.
type Options struct {
	Projects ProjectDirectory
	Users    UserDirectory
	Blobs    blob.Store
	Audit    *audit.Logger
	Clock    func() time.Time
	Log      *logrus.Entry
	Tracer   trace.Tracer
}

// Manager runs task mutations.
type Manager struct {
	db       *db.DB
	projects ProjectDirectory
	users    UserDirectory
	blobs    blob.Store
	audit    *audit.Logger
	clock    func() time.Time
	log      *logrus.Entry
	tracer   trace.Tracer
	views    *projection.Reader
}

// NewManager builds a Manager over database.
func NewManager(database *db.DB, opts Options) *Manager {
	m := &Manager{
		db:       database,
		projects: opts.Projects,
		users:    opts.Users,
		blobs:    opts.Blobs,
		audit:    opts.Audit,
		clock:    opts.Clock,
		log:      opts.Log,
		tracer:   opts.Tracer,
	}
	if m.projects == nil {
		m.projects = database
	}
	if m.users == nil {
		m.users = database
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.audit == nil {
		m.audit = audit.NewLogger(audit.Uniform, m.clock)
	}
	if m.log == nil {
		m.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	m.views = projection.NewReader(database.Queries, m.clock)
	return m
}

func (m *Manager) now() time.Time {
	return m.clock().UTC()
}

func (m *Manager) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.code", string(apperrors.CodeOf(err))))
	}
	span.End()
}

// logFor returns an entry tagged with the operation and, when present, the
// active trace.
func (m *Manager) logFor(ctx context.Context, op string) *logrus.Entry {
	log := m.log.WithField("operation", op)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		log = log.WithFields(logrus.Fields{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		})
	}
	return log
}

func (m *Manager) requireProject(ctx context.Context, id int64) error {
	ok, err := m.projects.ProjectExists(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "check project", err)
	}
	if !ok {
		return apperrors.NotFound("project", id)
	}
	return nil
}

func (m *Manager) requireUser(ctx context.Context, role string, id int64) error {
	ok, err := m.users.UserExists(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "check user", err)
	}
	if !ok {
		return apperrors.Invalid("%s %d does not exist", role, id)
	}
	return nil
}

// loadTask reads a task inside a unit of work, mapping a missing row to a
// not-found error.
func loadTask(ctx context.Context, q *db.Queries, id int64) (models.Task, error) {
	t, err := q.GetTask(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return models.Task{}, apperrors.NotFound("task", id)
	}
	return t, err
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
