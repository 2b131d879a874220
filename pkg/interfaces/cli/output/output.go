package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/application/services/board"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	Writer io.Writer
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// ValidateFormat rejects formats the renderers do not support
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Board renders the kanban board
func Board(view dto.BoardView, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(config.writer(), view)
	}
	w := config.writer()
	fmt.Fprintf(w, "📋 Board (%d jobs)\n", view.TotalCards())
	fmt.Fprintf(w, "================\n")
	for _, col := range view.Columns {
		fmt.Fprintf(w, "\n%s (%d)\n", col.Title, len(col.Cards))
		if len(col.Cards) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-12s %-14s %-8s %-12s %-9s %-10s\n",
			"Job", "Status", "Priority", "Due Date", "Progress", "Station")
		for _, card := range col.Cards {
			due := "-"
			if card.DueDate != nil {
				due = card.DueDate.Format("2006-01-02")
			}
			number := card.JobNumber
			if card.Pending {
				number += "*"
			}
			fmt.Fprintf(w, "  %-12s %-14s %-8s %-12s %-9s %-10s\n",
				number,
				card.Status,
				card.Priority,
				due,
				card.ProgressPercent.StringFixed(2)+"%",
				orDash(card.WorkCenterID))
		}
	}
	return nil
}

// Registry renders the columns, statuses and priority ladder
func Registry(view dto.RegistryView, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(config.writer(), view)
	}
	w := config.writer()
	fmt.Fprintf(w, "Columns:\n")
	for _, col := range view.Columns {
		fmt.Fprintf(w, "  %-12s %-14s drop -> %s\n", col.ID, col.Title, orDash(col.DropStatus.String()))
	}
	fmt.Fprintf(w, "\nStatuses:\n")
	fmt.Fprintf(w, "  %-14s %-12s %s\n", "Status", "Column", "Next")
	for _, def := range view.Statuses {
		next := make([]string, len(def.Next))
		for i, s := range def.Next {
			next[i] = s.String()
		}
		fmt.Fprintf(w, "  %-14s %-12s %s\n", def.Status, def.Column, orDash(strings.Join(next, ", ")))
	}
	levels := make([]string, len(view.Priorities))
	for i, p := range view.Priorities {
		levels[i] = string(p)
	}
	fmt.Fprintf(w, "\nPriorities (low to high): %s\n", strings.Join(levels, " < "))
	return nil
}

// Job renders one job with its plan, progress and issues
func Job(job entities.JobSnapshot, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(config.writer(), job)
	}
	w := config.writer()
	fmt.Fprintf(w, "%s  %s  %s\n", job.JobNumber, job.Status, job.Priority)
	fmt.Fprintf(w, "  Pieces: %d good, %d scrap of %d\n",
		job.Progress.CompletedPieces, job.Progress.ScrapPieces, job.Progress.TargetPieces)
	if job.WorkCenterID != "" {
		fmt.Fprintf(w, "  Station: %s (operation %d)\n", job.WorkCenterID, job.CurrentSequence)
	}
	if job.ActualStart != nil {
		fmt.Fprintf(w, "  Started: %s\n", job.ActualStart.Format("2006-01-02 15:04"))
	}
	if job.RoutingPlan != nil {
		writeOperations(w, job.RoutingPlan.Operations)
	}
	if len(job.Issues) > 0 {
		fmt.Fprintf(w, "  ⚠️  Issues:\n")
		for _, issue := range job.Issues {
			fmt.Fprintf(w, "    %s %-10s %s\n", issue.At.Format("2006-01-02 15:04"), issue.Category, issue.Message)
		}
	}
	return nil
}

// Attachment renders the result of attaching a routing plan
func Attachment(attachment repositories.PlanAttachment, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(config.writer(), attachment)
	}
	w := config.writer()
	fmt.Fprintf(w, "✅ Planned %s: %d operations, dispatch %s on %s\n",
		attachment.Job.JobNumber, len(attachment.Operations), attachment.DispatchJob.ID,
		orDash(attachment.DispatchJob.WorkCenterType))
	writeOperations(w, attachment.Operations)
	return nil
}

// Moves renders resolved board changes
func Moves(results []board.MoveResult, config Config) error {
	if config.Format == FormatJSON {
		type move struct {
			JobNumber string `json:"jobNumber"`
			Field     string `json:"field"`
			From      string `json:"from"`
			To        string `json:"to"`
			State     string `json:"state"`
			Error     string `json:"error,omitempty"`
		}
		out := make([]move, len(results))
		for i, r := range results {
			out[i] = move{JobNumber: r.JobNumber, Field: r.Field, From: r.From, To: r.To, State: r.State.String()}
			if r.Err != nil {
				out[i].Error = r.Err.Error()
			}
		}
		return writeJSON(config.writer(), out)
	}
	w := config.writer()
	for _, r := range results {
		line := fmt.Sprintf("%s %s: %s -> %s [%s]", r.JobNumber, r.Field, r.From, r.To, r.State)
		if r.Err != nil {
			line += ": " + r.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func writeOperations(w io.Writer, ops []entities.Operation) {
	if len(ops) == 0 {
		return
	}
	fmt.Fprintf(w, "  %-4s %-10s %-10s %-12s\n", "Seq", "Type", "Station", "Skill")
	for _, op := range ops {
		fmt.Fprintf(w, "  %-4d %-10s %-10s %-12v\n",
			op.Sequence, op.RequiredWorkCenterType, orDash(op.AssignedWorkCenterID), op.SkillLevel)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
