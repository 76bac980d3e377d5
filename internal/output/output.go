// Package output renders tier registries and simulation traces for the CLI.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// SimulationStep is one decision in an offline simulation run.
type SimulationStep struct {
	Step     int                `json:"step"`
	Offset   time.Duration      `json:"offset_ns"`
	Decision ratelimit.Decision `json:"decision"`
}

// SimulationReport is the full trace of a simulation run against one tier.
type SimulationReport struct {
	Tier     ratelimit.Tier   `json:"tier"`
	Identity string           `json:"identity"`
	Interval time.Duration    `json:"interval_ns"`
	Steps    []SimulationStep `json:"steps"`
}

// Allowed counts the allowed steps in the report.
func (r *SimulationReport) Allowed() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, step := range r.Steps {
		if step.Decision.Allowed {
			n++
		}
	}
	return n
}

// Formatter renders registry listings and simulation reports.
type Formatter interface {
	FormatTiers(tiers []ratelimit.Tier) (string, error)
	FormatSimulation(report *SimulationReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// decisionLabel renders a decision's outcome column.
func decisionLabel(d ratelimit.Decision) string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

// decisionDetail renders the per-step metadata column.
func decisionDetail(d ratelimit.Decision) string {
	if d.Allowed {
		return fmt.Sprintf("%d remaining", d.Remaining)
	}
	return fmt.Sprintf("retry after %ds", d.RetryAfterSeconds())
}
