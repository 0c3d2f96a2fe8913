package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
)

// LabelInput describes a label. A nil ProjectID makes the label global.
type LabelInput struct {
	Name      string
	Color     string
	ProjectID *int64
}

// Labels is the label catalog.
type Labels struct {
	db    *db.DB
	clock func() time.Time
}

// NewLabels builds the label catalog. A nil clock uses time.Now.
func NewLabels(database *db.DB, clock func() time.Time) *Labels {
	if clock == nil {
		clock = time.Now
	}
	return &Labels{db: database, clock: clock}
}

// Create adds a label; (name, project) pairs are unique, ignoring case.
func (c *Labels) Create(ctx context.Context, in LabelInput) (models.Label, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Label{}, apperrors.Invalid("label name is required")
	}
	label, err := c.db.InsertLabel(ctx, models.Label{
		Name:      name,
		Color:     strings.TrimSpace(in.Color),
		ProjectID: in.ProjectID,
		CreatedAt: c.clock().UTC(),
	})
	if errors.Is(err, db.ErrAlreadyExists) {
		return models.Label{}, labelTaken(name)
	}
	if err != nil {
		return models.Label{}, fmt.Errorf("create label: %w", err)
	}
	return label, nil
}

// Update renames or recolours a label, keeping names unique in its scope.
func (c *Labels) Update(ctx context.Context, id int64, name, color string) (models.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Label{}, apperrors.Invalid("label name is required")
	}

	var updated models.Label
	err := c.db.RunInTx(ctx, func(q *db.Queries) error {
		current, err := q.GetLabel(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound("label", id)
		}
		if err != nil {
			return err
		}
		current.Name = name
		current.Color = strings.TrimSpace(color)
		err = q.UpdateLabel(ctx, current)
		if errors.Is(err, db.ErrAlreadyExists) {
			return labelTaken(name)
		}
		if err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return models.Label{}, fmt.Errorf("update label: %w", err)
	}
	return updated, nil
}

// Delete removes a label even if tasks carry it; their links are dropped.
func (c *Labels) Delete(ctx context.Context, id int64) error {
	err := c.db.DeleteLabel(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return apperrors.NotFound("label", id)
	}
	return err
}

// Get returns one label.
func (c *Labels) Get(ctx context.Context, id int64) (models.Label, error) {
	label, err := c.db.GetLabel(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return models.Label{}, apperrors.NotFound("label", id)
	}
	return label, err
}

// List returns the labels a project sees, global ones included.
func (c *Labels) List(ctx context.Context, projectID int64) ([]models.Label, error) {
	return c.db.ListLabels(ctx, projectID)
}

// ResolveLabels de-duplicates ids and checks each label exists and is
// visible to the project. The result is sorted by id.
func ResolveLabels(ctx context.Context, q *db.Queries, projectID int64, ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		label, err := q.GetLabel(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperrors.Invalid("label %d does not exist", id)
		}
		if err != nil {
			return nil, err
		}
		if label.ProjectID != nil && *label.ProjectID != projectID {
			return nil, apperrors.Invalid("label %d belongs to another project", id)
		}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	return unique, nil
}

func labelTaken(name string) error {
	return apperrors.WithMetadata(apperrors.CodeValidation,
		fmt.Sprintf("label %q already exists in this scope", name),
		map[string]string{"name": name},
	)
}
