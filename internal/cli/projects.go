package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	apperrors "github.com/tgienger/taskflow/internal/errors"
)

func (a *app) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage the local project directory",
	}

	var description string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.db.CreateProject(cmd.Context(), args[0], description, a.now())
			if err != nil {
				return err
			}
			current, err := a.savedID(cmd.Context(), settingProject)
			if err != nil {
				return err
			}
			if current == 0 {
				if err := a.db.SetSetting(cmd.Context(), settingProject, strconv.FormatInt(p.ID, 10)); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "%s project %d %q\n", a.styles.Success.Render("created"), p.ID, p.Title)
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "project description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.db.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			current, err := a.savedID(cmd.Context(), settingProject)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(a.out, a.styles.TitleMuted.Render("No projects. Run 'taskflow project add <title>'."))
				return nil
			}
			for _, p := range projects {
				marker := " "
				if p.ID == current {
					marker = "*"
				}
				fmt.Fprintf(a.out, "%s %s %s\n", marker, a.styles.TaskID.Render(strconv.FormatInt(p.ID, 10)), p.Title)
			}
			return nil
		},
	}

	use := &cobra.Command{
		Use:   "use <project-id>",
		Short: "Select the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			ok, err := a.db.ProjectExists(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NotFound("project", id)
			}
			if err := a.db.SetSetting(cmd.Context(), settingProject, strconv.FormatInt(id, 10)); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "now using project %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(add, list, use)
	return cmd
}

func (a *app) userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the local user directory",
	}

	var email string
	var use bool
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.db.CreateUser(cmd.Context(), args[0], email, a.now())
			if err != nil {
				return err
			}
			if use {
				if err := a.db.SetSetting(cmd.Context(), settingActor, strconv.FormatInt(u.ID, 10)); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "%s user %d %q\n", a.styles.Success.Render("created"), u.ID, u.Name)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "email address")
	add.Flags().BoolVar(&use, "use", false, "act as this user from now on")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.db.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			actor, err := a.savedID(cmd.Context(), settingActor)
			if err != nil {
				return err
			}
			for _, u := range users {
				marker := " "
				if u.ID == actor {
					marker = "*"
				}
				fmt.Fprintf(a.out, "%s %s %-20s %s\n", marker, a.styles.TaskID.Render(strconv.FormatInt(u.ID, 10)), u.Name, a.styles.TitleMuted.Render(u.Email))
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
