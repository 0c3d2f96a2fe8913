package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/lifecycle"
	"github.com/tgienger/taskflow/internal/models"
)

// taskFlags are the editable task fields shared by create and update.
type taskFlags struct {
	title       string
	description string
	priority    string
	deadline    string
	milestone   bool
	assignee    int64
	parent      int64
	status      string
	labels      []string
	attach      []string
}

func (f *taskFlags) register(cmd *cobra.Command, create bool) {
	cmd.Flags().StringVar(&f.description, "description", "", "task description")
	cmd.Flags().StringVar(&f.priority, "priority", "low", "low, medium, high or critical")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "deadline as YYYY-MM-DD or RFC 3339 (empty clears on update)")
	cmd.Flags().BoolVar(&f.milestone, "milestone", false, "mark the task as a milestone")
	cmd.Flags().Int64Var(&f.assignee, "assignee", 0, "assigned user id (0 unassigns on update)")
	cmd.Flags().StringVar(&f.status, "status", "", "status id or name")
	cmd.Flags().StringSliceVar(&f.labels, "label", nil, "label id or name (repeatable)")
	if create {
		cmd.Flags().Int64Var(&f.parent, "parent", 0, "parent task id")
		cmd.Flags().StringSliceVar(&f.attach, "attach", nil, "file to attach (repeatable)")
	} else {
		cmd.Flags().StringVar(&f.title, "title", "", "new title")
	}
}

func (a *app) taskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, change and inspect tasks",
	}
	cmd.AddCommand(
		a.taskCreateCommand(),
		a.taskUpdateCommand(),
		a.taskMoveCommand(),
		a.taskDeleteCommand(),
		a.taskShowCommand(),
		a.taskListCommand(),
		a.taskTreeCommand(),
		a.taskStatsCommand(),
		a.taskAuditCommand(),
	)
	return cmd
}

func (a *app) taskCreateCommand() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Long: `Create a task in the current project.

Attached files are uploaded in the same unit of work: if any step fails,
nothing is saved and files already uploaded are deleted again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := a.actorID(ctx)
			if err != nil {
				return err
			}
			projectID, err := a.projectID(cmd)
			if err != nil {
				return err
			}

			in := lifecycle.CreateInput{
				ProjectID:   projectID,
				Title:       args[0],
				Description: f.description,
				IsMilestone: f.milestone,
			}
			if in.Priority, err = parsePriority(f.priority); err != nil {
				return err
			}
			if in.Deadline, err = parseDeadline(f.deadline); err != nil {
				return err
			}
			in.AssignedToUserID = optionalID(f.assignee)
			in.ParentTaskID = optionalID(f.parent)
			if f.status != "" {
				if in.StatusID, err = a.resolveStatus(ctx, projectID, f.status); err != nil {
					return err
				}
			}
			if in.LabelIDs, err = a.resolveLabels(ctx, projectID, f.labels); err != nil {
				return err
			}

			uploads, closeAll, err := openUploads(f.attach)
			if err != nil {
				return err
			}
			defer closeAll()

			detail, err := a.manager.CreateTask(ctx, in, actor, uploads...)
			if err != nil {
				return err
			}
			renderDetail(a.out, a.styles, detail)
			return nil
		},
	}
	f.register(cmd, true)
	addProjectFlag(cmd)
	return cmd
}

func (a *app) taskUpdateCommand() *cobra.Command {
	var f taskFlags
	var version int64
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change a task",
		Long: `Change the fields given as flags and keep the rest.

Pass --version to fail with a conflict if someone else changed the task
since you last looked at it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			actor, err := a.actorID(ctx)
			if err != nil {
				return err
			}
			current, err := a.reader.Detail(ctx, id)
			if err != nil {
				return err
			}

			in := lifecycle.UpdateFrom(current)
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = f.title
			}
			if flags.Changed("description") {
				in.Description = f.description
			}
			if flags.Changed("priority") {
				if in.Priority, err = parsePriority(f.priority); err != nil {
					return err
				}
			}
			if flags.Changed("deadline") {
				if in.Deadline, err = parseDeadline(f.deadline); err != nil {
					return err
				}
			}
			if flags.Changed("milestone") {
				in.IsMilestone = f.milestone
			}
			if flags.Changed("assignee") {
				in.AssignedToUserID = optionalID(f.assignee)
			}
			if flags.Changed("status") {
				if in.StatusID, err = a.resolveStatus(ctx, current.ProjectID, f.status); err != nil {
					return err
				}
			}
			if flags.Changed("label") {
				if in.LabelIDs, err = a.resolveLabels(ctx, current.ProjectID, f.labels); err != nil {
					return err
				}
			}
			if flags.Changed("version") {
				in.Version = version
			}

			detail, err := a.manager.UpdateTask(ctx, id, in, actor)
			if err != nil {
				return err
			}
			renderDetail(a.out, a.styles, detail)
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().Int64Var(&version, "version", 0, "expected current version")
	return cmd
}

func (a *app) taskMoveCommand() *cobra.Command {
	var parent int64
	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Re-parent a task (0 makes it a root task)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			actor, err := a.actorID(cmd.Context())
			if err != nil {
				return err
			}
			detail, err := a.manager.MoveTask(cmd.Context(), id, parent, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s task %d under %s\n", a.styles.Success.Render("moved"), id, parentText(detail.ParentTaskID))
			return nil
		},
	}
	cmd.Flags().Int64Var(&parent, "parent", 0, "new parent task id")
	return cmd
}

func (a *app) taskDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task; its subtasks become root tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			actor, err := a.actorID(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.manager.DeleteTask(cmd.Context(), id, actor); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s task %d\n", a.styles.Success.Render("deleted"), id)
			return nil
		},
	}
}

func (a *app) taskShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its comments, files, watchers and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			detail, err := a.reader.Detail(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderDetail(a.out, a.styles, detail)
			return nil
		},
	}
}

func (a *app) taskListCommand() *cobra.Command {
	var assignee int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks of the current project or of one assignee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []models.TaskListItem
			var err error
			if assignee != 0 {
				items, err = a.reader.ListByAssignee(cmd.Context(), assignee)
			} else {
				var projectID int64
				if projectID, err = a.projectID(cmd); err != nil {
					return err
				}
				items, err = a.reader.ListByProject(cmd.Context(), projectID)
			}
			if err != nil {
				return err
			}
			renderTaskList(a.out, a.styles, items, a.now())
			return nil
		},
	}
	cmd.Flags().Int64Var(&assignee, "assignee", 0, "list tasks assigned to this user across projects")
	addProjectFlag(cmd)
	return cmd
}

func (a *app) taskTreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the task hierarchy of the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.projectID(cmd)
			if err != nil {
				return err
			}
			tree, err := a.reader.Tree(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			renderTree(a.out, a.styles, tree, a.now())
			return nil
		},
	}
	addProjectFlag(cmd)
	return cmd
}

func (a *app) taskStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise progress in the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := a.projectID(cmd)
			if err != nil {
				return err
			}
			stats, err := a.reader.Stats(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			renderStats(a.out, a.styles, stats)
			return nil
		},
	}
	addProjectFlag(cmd)
	return cmd
}

func (a *app) taskAuditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <task-id>",
		Short: "Show the history of a task, even a deleted one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			trail, err := a.reader.AuditTrail(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderAudit(a.out, a.styles, trail)
			return nil
		},
	}
}

// openUploads opens each path for upload. The returned func closes every
// file that was opened.
func openUploads(paths []string) ([]lifecycle.AttachmentUpload, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	uploads := make([]lifecycle.AttachmentUpload, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.Invalid("open attachment: %v", err)
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.Invalid("stat attachment: %v", err)
		}
		uploads = append(uploads, lifecycle.AttachmentUpload{
			FileName:    filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Size:        info.Size(),
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

func parsePriority(s string) (models.Priority, error) {
	p, err := models.ParsePriority(s)
	if err != nil {
		return 0, apperrors.Invalid("%v", err)
	}
	return p, nil
}

func parseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.Invalid("invalid deadline %q: use YYYY-MM-DD or RFC 3339", s)
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func parentText(id *int64) string {
	if id == nil {
		return "the project root"
	}
	return fmt.Sprintf("task %d", *id)
}
