package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tgienger/taskflow/internal/catalog"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
)

func (a *app) statusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Manage task statuses",
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Install the built-in global statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := a.statuses.SeedGlobal(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %d global status(es)\n", a.styles.Success.Render("seeded"), added)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the statuses of the current project, global ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.projectID(cmd)
			if err != nil {
				return err
			}
			statuses, err := a.reader.Statuses(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			renderStatuses(a.out, a.styles, statuses)
			return nil
		},
	}
	addProjectFlag(list)

	var in catalog.StatusInput
	var kind string
	var global bool
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			in.Kind = models.StatusKind(kind)
			if !global {
				projectID, err := a.projectID(cmd)
				if err != nil {
					return err
				}
				in.ProjectID = &projectID
			}
			st, err := a.statuses.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s status %d %q (%s)\n", a.styles.Success.Render("created"), st.ID, st.Name, st.Kind)
			return nil
		},
	}
	add.Flags().StringVar(&in.Color, "color", "", "hex colour")
	add.Flags().IntVar(&in.Order, "order", 0, "display order")
	add.Flags().BoolVar(&in.IsDefault, "default", false, "make this the default status of its scope")
	add.Flags().BoolVar(&in.IsCompleted, "done", false, "tasks in this status count as completed")
	add.Flags().StringVar(&kind, "kind", "", "todo, in_progress or done (inferred when empty)")
	add.Flags().BoolVar(&global, "global", false, "create a global status instead of a project one")
	addProjectFlag(add)

	remove := &cobra.Command{
		Use:   "delete <status-id>",
		Short: "Delete a status no task uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "status")
			if err != nil {
				return err
			}
			if err := a.statuses.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s status %d\n", a.styles.Success.Render("deleted"), id)
			return nil
		},
	}

	cmd.AddCommand(seed, list, add, remove)
	return cmd
}

func (a *app) labelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Manage labels",
	}

	var color string
	var global bool
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := catalog.LabelInput{Name: args[0], Color: color}
			if !global {
				projectID, err := a.projectID(cmd)
				if err != nil {
					return err
				}
				in.ProjectID = &projectID
			}
			l, err := a.labels.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s label %d %q\n", a.styles.Success.Render("created"), l.ID, l.Name)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "hex colour")
	add.Flags().BoolVar(&global, "global", false, "create a global label instead of a project one")
	addProjectFlag(add)

	list := &cobra.Command{
		Use:   "list",
		Short: "List the labels of the current project, global ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.projectID(cmd)
			if err != nil {
				return err
			}
			labels, err := a.labels.List(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			for _, l := range labels {
				scope := "project"
				if l.ProjectID == nil {
					scope = "global"
				}
				fmt.Fprintf(a.out, "%s %s %-20s %s\n",
					a.styles.TaskID.Render(strconv.FormatInt(l.ID, 10)),
					a.styles.Swatch(l.Color), l.Name, a.styles.TitleMuted.Render(scope))
			}
			return nil
		},
	}
	addProjectFlag(list)

	remove := &cobra.Command{
		Use:   "delete <label-id>",
		Short: "Delete a label and detach it from every task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "label")
			if err != nil {
				return err
			}
			if err := a.labels.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s label %d\n", a.styles.Success.Render("deleted"), id)
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

// resolveStatus accepts a status id or a case-insensitive name visible to
// the project.
func (a *app) resolveStatus(ctx context.Context, projectID int64, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	statuses, err := a.statuses.List(ctx, projectID)
	if err != nil {
		return 0, err
	}
	for _, st := range statuses {
		if strings.EqualFold(st.Name, strings.TrimSpace(ref)) {
			return st.ID, nil
		}
	}
	return 0, apperrors.Invalid("unknown status %q", ref)
}

// resolveLabels accepts label ids or case-insensitive names visible to the
// project.
func (a *app) resolveLabels(ctx context.Context, projectID int64, refs []string) ([]int64, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var visible []models.Label
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
			ids = append(ids, id)
			continue
		}
		if visible == nil {
			var err error
			if visible, err = a.labels.List(ctx, projectID); err != nil {
				return nil, err
			}
		}
		found := false
		for _, l := range visible {
			if strings.EqualFold(l.Name, strings.TrimSpace(ref)) {
				ids = append(ids, l.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, apperrors.Invalid("unknown label %q", ref)
		}
	}
	return ids, nil
}
