package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
)

func (a *app) commentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on tasks",
	}

	add := &cobra.Command{
		Use:   "add <task-id> <text>...",
		Short: "Comment on a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			actor, err := a.actorID(cmd.Context())
			if err != nil {
				return err
			}
			c, err := a.manager.AddComment(cmd.Context(), taskID, actor, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s comment %d on task %d\n", a.styles.Success.Render("added"), c.ID, taskID)
			return nil
		},
	}

	edit := &cobra.Command{
		Use:   "edit <comment-id> <text>...",
		Short: "Rewrite one of your comments",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "comment")
			if err != nil {
				return err
			}
			actor, err := a.actorID(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := a.manager.EditComment(cmd.Context(), id, actor, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s comment %d\n", a.styles.Success.Render("edited"), id)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete one of your comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "comment")
			if err != nil {
				return err
			}
			actor, err := a.actorID(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.manager.DeleteComment(cmd.Context(), id, actor); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s comment %d\n", a.styles.Success.Render("deleted"), id)
			return nil
		},
	}

	cmd.AddCommand(add, edit, remove)
	return cmd
}

func (a *app) watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe users to tasks",
	}

	run := func(add bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			actor, err := a.actorID(ctx)
			if err != nil {
				return err
			}
			userID := actor
			if len(args) > 1 {
				if userID, err = parseID(args[1], "user"); err != nil {
					return err
				}
			}

			var changed bool
			verb := "now watching"
			if add {
				changed, err = a.manager.AddWatcher(ctx, taskID, userID, actor)
			} else {
				verb = "no longer watching"
				changed, err = a.manager.RemoveWatcher(ctx, taskID, userID, actor)
			}
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(a.out, a.styles.TitleMuted.Render("nothing to do"))
				return nil
			}
			fmt.Fprintf(a.out, "user %d %s task %d\n", userID, verb, taskID)
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <task-id> [user-id]",
			Short: "Watch a task (defaults to the acting user)",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  run(true),
		},
		&cobra.Command{
			Use:   "remove <task-id> [user-id]",
			Short: "Stop watching a task (defaults to the acting user)",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  run(false),
		},
	)
	return cmd
}

func (a *app) attachCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach files to tasks",
	}

	add := &cobra.Command{
		Use:   "add <task-id> <file>",
		Short: "Upload a file to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			actor, err := a.actorID(cmd.Context())
			if err != nil {
				return err
			}
			uploads, closeAll, err := openUploads(args[1:])
			if err != nil {
				return err
			}
			defer closeAll()

			att, err := a.manager.AddAttachment(cmd.Context(), taskID, actor, uploads[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s attachment %d %s\n", a.styles.Success.Render("stored"), att.ID, a.styles.TitleMuted.Render(att.StorageKey))
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <attachment-id>",
		Short: "Remove an attachment and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			actor, err := a.actorID(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.manager.RemoveAttachment(cmd.Context(), id, actor); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s attachment %d\n", a.styles.Success.Render("removed"), id)
			return nil
		},
	}

	var output string
	get := &cobra.Command{
		Use:   "get <attachment-id>",
		Short: "Write an attachment's contents to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			att, err := a.db.GetAttachment(cmd.Context(), id)
			if errors.Is(err, db.ErrNotFound) {
				return apperrors.NotFound("attachment", id)
			}
			if err != nil {
				return err
			}
			body, err := a.blobs.Open(att.StorageKey)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, fmt.Sprintf("open blob %s", att.StorageKey), err)
			}
			defer body.Close()

			if output == "" {
				_, err = io.Copy(a.out, body)
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, body); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.errw, "wrote %s to %s\n", att.FileName, output)
			return nil
		},
	}
	get.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	cmd.AddCommand(add, get, remove)
	return cmd
}

func (a *app) reconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Retry deleting blobs left behind by rolled back operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.manager.ReconcileOrphanBlobs(cmd.Context())
			if err != nil {
				return err
			}
			style := a.styles.Success
			if report.Remaining > 0 {
				style = a.styles.Warning
			}
			fmt.Fprintln(a.out, style.Render(fmt.Sprintf("removed %d orphan blob(s), %d remaining", report.Removed, report.Remaining)))
			return nil
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStore: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "taskflow %s (commit: %s, built: %s)\n", a.build.Version, a.build.Commit, a.build.Date)
		},
	}
}
