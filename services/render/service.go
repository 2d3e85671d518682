package render

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kulu-ops/codepipeline-monitor/api"
)

const dateFormat = "02/01/2006 15:04"

// Service is the interface for rendering the monitoring report
type Service interface {
	RenderReport(rows []api.ReportRow, filters api.FilterSet, now time.Time)
}

// NewService returns a new render.Service writing to w
func NewService(w io.Writer, commitMessageWidth int) (Service, error) {
	return &service{
		writer:             w,
		commitMessageWidth: commitMessageWidth,
	}, nil
}

type service struct {
	writer             io.Writer
	commitMessageWidth int
}

// RenderReport writes the banner and the bordered table; when no pipelines
// matched it writes an explicit message instead of an empty table
func (s *service) RenderReport(rows []api.ReportRow, filters api.FilterSet, now time.Time) {
	fmt.Fprintln(s.writer)
	fmt.Fprintln(s.writer, "=== AWS CodePipeline Deployment Monitor ===")
	fmt.Fprintf(s.writer, "Last updated: %v\n", now.Format(dateFormat))
	fmt.Fprintf(s.writer, "Filtering pipelines containing: %v\n\n", filters)

	if len(rows) == 0 {
		fmt.Fprintf(s.writer, "No pipelines found containing any of: %v\n", filters)
		return
	}

	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Pipeline.Name,
			row.Execution.Branch,
			string(row.Execution.Status),
			s.formatLastRun(row.Execution.StartedAt),
			s.formatDuration(row.Execution.StartedAt, row.Execution.StoppedAt),
			s.truncateCommitMessage(row.Execution.CommitMessage),
		})
	}

	table := tablewriter.NewWriter(s.writer)
	table.SetHeader([]string{"Pipeline", "Branch", "Status", "Last Run", "Duration", "Commit Message"})
	table.AppendBulk(data)
	table.Render()
	fmt.Fprintln(s.writer)
}

func (s *service) formatLastRun(startedAt *time.Time) string {
	if startedAt == nil {
		return "N/A"
	}

	return startedAt.Format(dateFormat)
}

// formatDuration buckets the elapsed time the way humans read it; a started
// but not yet stopped execution renders as In Progress
func (s *service) formatDuration(startedAt, stoppedAt *time.Time) string {
	if startedAt == nil {
		return "N/A"
	}
	if stoppedAt == nil {
		return "In Progress"
	}

	totalSeconds := int(stoppedAt.Sub(*startedAt).Seconds())
	if totalSeconds < 0 {
		totalSeconds = 0
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%vh %vm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%vm %vs", minutes, seconds)
	default:
		return fmt.Sprintf("%vs", seconds)
	}
}

func (s *service) truncateCommitMessage(message string) string {
	if len(message) > s.commitMessageWidth {
		return message[:s.commitMessageWidth] + "..."
	}

	return message
}
