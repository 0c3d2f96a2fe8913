// Package catalog manages the status and label definitions tasks reference.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed statuses.yaml
var defaultStatusesYAML []byte

// StatusInput describes a status to create or the new values of one being
// updated. An empty Kind is inferred from Name and IsCompleted.
type StatusInput struct {
	Name        string
	Color       string
	Order       int
	IsDefault   bool
	IsCompleted bool
	Kind        models.StatusKind
	ProjectID   *int64
}

// Statuses is the status catalog.
type Statuses struct {
	db    *db.DB
	clock func() time.Time
}

// NewStatuses builds the status catalog. A nil clock uses time.Now.
func NewStatuses(database *db.DB, clock func() time.Time) *Statuses {
	if clock == nil {
		clock = time.Now
	}
	return &Statuses{db: database, clock: clock}
}

// Create adds a status. Marking it default clears the flag on the other
// statuses of the same scope.
func (c *Statuses) Create(ctx context.Context, in StatusInput) (models.Status, error) {
	st, err := statusFromInput(in)
	if err != nil {
		return models.Status{}, err
	}
	st.ProjectID = in.ProjectID
	st.CreatedAt = c.clock().UTC()

	var created models.Status
	err = c.db.RunInTx(ctx, func(q *db.Queries) error {
		created, err = q.InsertStatus(ctx, st)
		if err != nil {
			return err
		}
		if created.IsDefault {
			return q.ClearDefaultStatus(ctx, created.ProjectID, created.ID)
		}
		return nil
	})
	if err != nil {
		return models.Status{}, fmt.Errorf("create status: %w", err)
	}
	return created, nil
}

// Update replaces a status's name, colour, order, default flag and kind.
// The scope of a status never changes.
func (c *Statuses) Update(ctx context.Context, id int64, in StatusInput) (models.Status, error) {
	st, err := statusFromInput(in)
	if err != nil {
		return models.Status{}, err
	}

	var updated models.Status
	err = c.db.RunInTx(ctx, func(q *db.Queries) error {
		current, err := q.GetStatus(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound("status", id)
		}
		if err != nil {
			return err
		}
		st.ID = current.ID
		st.ProjectID = current.ProjectID
		if err := q.UpdateStatus(ctx, st); err != nil {
			return err
		}
		if st.IsDefault {
			if err := q.ClearDefaultStatus(ctx, st.ProjectID, st.ID); err != nil {
				return err
			}
		}
		updated, err = q.GetStatus(ctx, id)
		return err
	})
	if err != nil {
		return models.Status{}, fmt.Errorf("update status: %w", err)
	}
	return updated, nil
}

// Delete removes a status nobody uses. Every task must keep a status, so a
// status still referenced by tasks is refused.
func (c *Statuses) Delete(ctx context.Context, id int64) error {
	err := c.db.RunInTx(ctx, func(q *db.Queries) error {
		inUse, err := q.CountTasksWithStatus(ctx, id)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return apperrors.Invalid("status %d is used by %d task(s)", id, inUse)
		}
		err = q.DeleteStatus(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound("status", id)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete status: %w", err)
	}
	return nil
}

// Get returns one status.
func (c *Statuses) Get(ctx context.Context, id int64) (models.Status, error) {
	st, err := c.db.GetStatus(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return models.Status{}, apperrors.NotFound("status", id)
	}
	return st, err
}

// List returns the statuses a project sees, global ones included, in order.
func (c *Statuses) List(ctx context.Context, projectID int64) ([]models.Status, error) {
	return c.db.ListStatuses(ctx, projectID)
}

// Default returns the status new tasks in a project start in.
func (c *Statuses) Default(ctx context.Context, projectID int64) (models.Status, error) {
	return DefaultStatus(ctx, c.db.Queries, projectID)
}

// SeedGlobal inserts the built-in global statuses that are not defined yet
// and returns how many were added.
func (c *Statuses) SeedGlobal(ctx context.Context) (int, error) {
	defs, err := DefaultStatusDefinitions()
	if err != nil {
		return 0, err
	}

	added := 0
	err = c.db.RunInTx(ctx, func(q *db.Queries) error {
		for _, def := range defs {
			_, err := q.GetStatusByName(ctx, nil, def.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, db.ErrNotFound) {
				return err
			}
			st, err := statusFromInput(def)
			if err != nil {
				return err
			}
			st.CreatedAt = c.clock().UTC()
			created, err := q.InsertStatus(ctx, st)
			if err != nil {
				return err
			}
			if created.IsDefault {
				if err := q.ClearDefaultStatus(ctx, nil, created.ID); err != nil {
					return err
				}
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed statuses: %w", err)
	}
	return added, nil
}

type statusFile struct {
	Statuses []struct {
		Name    string `yaml:"name"`
		Color   string `yaml:"color"`
		Order   int    `yaml:"order"`
		Kind    string `yaml:"kind"`
		Default bool   `yaml:"default"`
	} `yaml:"statuses"`
}

// DefaultStatusDefinitions parses the embedded global status template.
func DefaultStatusDefinitions() ([]StatusInput, error) {
	return ParseStatusDefinitions(defaultStatusesYAML)
}

// ParseStatusDefinitions parses a YAML status template.
func ParseStatusDefinitions(data []byte) ([]StatusInput, error) {
	var file statusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse status definitions: %w", err)
	}
	defs := make([]StatusInput, 0, len(file.Statuses))
	for _, s := range file.Statuses {
		defs = append(defs, StatusInput{
			Name:      s.Name,
			Color:     s.Color,
			Order:     s.Order,
			IsDefault: s.Default,
			Kind:      models.StatusKind(s.Kind),
		})
	}
	return defs, nil
}

// ResolveStatus loads a status and checks the project can use it.
func ResolveStatus(ctx context.Context, q *db.Queries, projectID, statusID int64) (models.Status, error) {
	st, err := q.GetStatus(ctx, statusID)
	if errors.Is(err, db.ErrNotFound) {
		return models.Status{}, apperrors.Invalid("status %d does not exist", statusID)
	}
	if err != nil {
		return models.Status{}, err
	}
	if st.ProjectID != nil && *st.ProjectID != projectID {
		return models.Status{}, apperrors.Invalid("status %d belongs to another project", statusID)
	}
	return st, nil
}

// DefaultStatus picks a project's starting status: the project default,
// then the global default, then the first status in order.
func DefaultStatus(ctx context.Context, q *db.Queries, projectID int64) (models.Status, error) {
	statuses, err := q.ListStatuses(ctx, projectID)
	if err != nil {
		return models.Status{}, err
	}
	if len(statuses) == 0 {
		return models.Status{}, apperrors.Invalid("project %d has no statuses", projectID)
	}
	var global *models.Status
	for i, st := range statuses {
		if !st.IsDefault {
			continue
		}
		if st.ProjectID != nil {
			return st, nil
		}
		if global == nil {
			global = &statuses[i]
		}
	}
	if global != nil {
		return *global, nil
	}
	return statuses[0], nil
}

func statusFromInput(in StatusInput) (models.Status, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Status{}, apperrors.Invalid("status name is required")
	}
	kind := in.Kind
	if kind == "" {
		kind = models.InferStatusKind(name, in.IsCompleted)
	}
	if !kind.Valid() {
		return models.Status{}, apperrors.Invalid("unknown status kind %q", kind)
	}
	if in.IsCompleted && kind != models.StatusDone {
		return models.Status{}, apperrors.Invalid("status %q of kind %s cannot be completed; use kind %s", name, kind, models.StatusDone)
	}
	return models.Status{
		Name:      name,
		Color:     strings.TrimSpace(in.Color),
		Order:     in.Order,
		IsDefault: in.IsDefault,
		Kind:      kind,
	}, nil
}
