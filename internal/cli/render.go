package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

const timeLayout = "2006-01-02 15:04"

func renderStatuses(w io.Writer, s *styles.Styles, statuses []models.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, s.TitleMuted.Render("No statuses. Run 'taskflow status seed'."))
		return
	}
	for _, st := range statuses {
		flags := []string{string(st.Kind)}
		if st.IsDefault {
			flags = append(flags, "default")
		}
		if st.ProjectID == nil {
			flags = append(flags, "global")
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			s.TaskID.Render(strconv.FormatInt(st.ID, 10)),
			s.Swatch(st.Color),
			s.Status(st.Color).Render(st.Name),
			s.TitleMuted.Render(strings.Join(flags, ", ")),
		)
	}
}

func renderTaskList(w io.Writer, s *styles.Styles, items []models.TaskListItem, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(w, s.TitleMuted.Render("No tasks. Run 'taskflow task create <title>'."))
		return
	}
	for _, item := range items {
		fmt.Fprintln(w, taskLine(s, item, now))
	}
}

func taskLine(s *styles.Styles, item models.TaskListItem, now time.Time) string {
	var b strings.Builder
	b.WriteString(s.TaskID.Render("#" + strconv.FormatInt(item.ID, 10)))
	b.WriteString(s.Status(item.StatusColor).Render(item.StatusName))
	b.WriteString(s.Priority(item.Priority).Render(item.Priority.String()))
	b.WriteString(s.TaskTitle.Render(item.Title))
	if item.IsMilestone {
		b.WriteString(" " + s.Milestone.Render("◆"))
	}
	for _, name := range item.LabelNames {
		b.WriteString(" " + s.Tag.Render("#"+name))
	}
	if item.Deadline != nil && item.StatusKind != models.StatusDone && item.Deadline.Before(now) {
		b.WriteString(" " + s.Overdue.Render("overdue"))
	}

	var counts []string
	if item.ChildCount > 0 {
		counts = append(counts, fmt.Sprintf("%d sub", item.ChildCount))
	}
	if item.CommentCount > 0 {
		counts = append(counts, fmt.Sprintf("%d comments", item.CommentCount))
	}
	if item.AttachmentCount > 0 {
		counts = append(counts, fmt.Sprintf("%d files", item.AttachmentCount))
	}
	if len(counts) > 0 {
		b.WriteString(" " + s.TitleMuted.Render("("+strings.Join(counts, ", ")+")"))
	}
	return b.String()
}

func renderDetail(w io.Writer, s *styles.Styles, d models.TaskDetail) {
	var b strings.Builder
	title := s.Title.Render(fmt.Sprintf("#%d %s", d.ID, d.Title))
	if d.IsMilestone {
		title += " " + s.Milestone.Render("◆ milestone")
	}
	b.WriteString(title + "\n")

	row := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(s.Key.Render(key) + s.Value.Render(value) + "\n")
	}
	row("status", s.Swatch(d.Status.Color)+" "+d.Status.Name)
	row("priority", d.Priority.String())
	row("project", strconv.FormatInt(d.ProjectID, 10))
	row("parent", idText(d.ParentTaskID))
	row("assignee", idText(d.AssignedToUserID))
	row("created by", strconv.FormatInt(d.CreatedByUserID, 10))
	row("deadline", timeText(d.Deadline))
	row("started", timeText(d.StartedAt))
	row("completed", timeText(d.CompletedAt))
	row("version", strconv.FormatInt(d.Version, 10))
	if len(d.Labels) > 0 {
		names := make([]string, len(d.Labels))
		for i, l := range d.Labels {
			names[i] = l.Name
		}
		row("labels", strings.Join(names, ", "))
	}
	if d.Description != "" {
		b.WriteString("\n" + d.Description + "\n")
	}

	if len(d.Children) > 0 {
		b.WriteString(s.Section.Render("Subtasks") + "\n")
		for _, c := range d.Children {
			fmt.Fprintf(&b, "  #%d %s\n", c.ID, c.Title)
		}
	}
	if len(d.Watchers) > 0 {
		ids := make([]string, len(d.Watchers))
		for i, watcher := range d.Watchers {
			ids[i] = strconv.FormatInt(watcher.UserID, 10)
		}
		b.WriteString(s.Section.Render("Watchers") + "\n  users " + strings.Join(ids, ", ") + "\n")
	}
	if len(d.Attachments) > 0 {
		b.WriteString(s.Section.Render("Attachments") + "\n")
		for _, att := range d.Attachments {
			fmt.Fprintf(&b, "  [%d] %s %s %s\n", att.ID, att.FileName,
				s.TitleMuted.Render(fmt.Sprintf("%d bytes", att.FileSize)),
				s.TitleMuted.Render(att.StorageKey))
		}
	}
	if len(d.Comments) > 0 {
		b.WriteString(s.Section.Render("Comments") + "\n")
		for _, c := range d.Comments {
			edited := ""
			if c.IsEdited {
				edited = " (edited)"
			}
			fmt.Fprintf(&b, "  [%d] user %d, %s%s\n    %s\n", c.ID, c.UserID, c.CreatedAt.Format(timeLayout), edited, c.Content)
		}
	}
	if len(d.AuditTrail) > 0 {
		b.WriteString(s.Section.Render("History") + "\n")
		for _, e := range d.AuditTrail {
			b.WriteString("  " + auditLine(e) + "\n")
		}
	}

	fmt.Fprintln(w, s.Panel.Render(strings.TrimRight(b.String(), "\n")))
}

func renderTree(w io.Writer, s *styles.Styles, nodes []*models.TaskNode, now time.Time) {
	if len(nodes) == 0 {
		fmt.Fprintln(w, s.TitleMuted.Render("No tasks."))
		return
	}
	var walk func(nodes []*models.TaskNode, prefix string)
	walk = func(nodes []*models.TaskNode, prefix string) {
		for i, n := range nodes {
			branch, next := "├── ", "│   "
			if i == len(nodes)-1 {
				branch, next = "└── ", "    "
			}
			fmt.Fprintln(w, s.TitleMuted.Render(prefix+branch)+taskLine(s, n.Item, now))
			walk(n.Children, prefix+next)
		}
	}
	walk(nodes, "")
}

func renderStats(w io.Writer, s *styles.Styles, stats models.ProjectStats) {
	var b strings.Builder
	b.WriteString(s.Title.Render(fmt.Sprintf("Project %d", stats.ProjectID)) + "\n")
	b.WriteString(s.Key.Render("total") + strconv.Itoa(stats.Total) + "\n")
	b.WriteString(s.Key.Render("completed") + s.Success.Render(strconv.Itoa(stats.Completed)) + "\n")
	b.WriteString(s.Key.Render("in progress") + s.Warning.Render(strconv.Itoa(stats.InProgress)) + "\n")
	b.WriteString(s.Key.Render("overdue") + s.Error.Render(strconv.Itoa(stats.Overdue)) + "\n")
	if len(stats.ByStatus) > 0 {
		b.WriteString(s.Section.Render("By status") + "\n")
		for _, c := range stats.ByStatus {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, s.Key.Render(c.StatusName), strconv.Itoa(c.Count)) + "\n")
		}
	}
	fmt.Fprintln(w, s.Panel.Render(strings.TrimRight(b.String(), "\n")))
}

func renderAudit(w io.Writer, s *styles.Styles, trail []models.AuditLogEntry) {
	if len(trail) == 0 {
		fmt.Fprintln(w, s.TitleMuted.Render("No history."))
		return
	}
	for _, e := range trail {
		fmt.Fprintln(w, auditLine(e))
	}
}

func auditLine(e models.AuditLogEntry) string {
	line := fmt.Sprintf("%s user %d %s", e.CreatedAt.Format(timeLayout), e.UserID, e.Action)
	switch {
	case e.FieldName != "" && e.OldValue != "" && e.NewValue != "":
		line += fmt.Sprintf(" %s: %q -> %q", e.FieldName, e.OldValue, e.NewValue)
	case e.FieldName != "" && e.NewValue != "":
		line += fmt.Sprintf(" %s: %q", e.FieldName, e.NewValue)
	case e.FieldName != "" && e.OldValue != "":
		line += fmt.Sprintf(" %s: was %q", e.FieldName, e.OldValue)
	}
	return line
}

func idText(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func timeText(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
