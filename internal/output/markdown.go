package output

import (
	"fmt"
	"strings"

	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

// MarkdownFormatter renders output as markdown tables.
type MarkdownFormatter struct{}

// FormatTiers renders the tier registry as Markdown.
func (f *MarkdownFormatter) FormatTiers(tiers []ratelimit.Tier) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Admission tiers\n\n")
	sb.WriteString("| Tier | Max Operations | Window |\n")
	sb.WriteString("|------|----------------|--------|\n")

	for _, tier := range tiers {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n",
			escapeMarkdownCell(tier.Class),
			tier.MaxOperations,
			tier.Window,
		))
	}

	return sb.String(), nil
}

// FormatSimulation renders a simulation trace as Markdown.
func (f *MarkdownFormatter) FormatSimulation(report *SimulationReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Simulation: tier %s, identity %s\n\n",
		escapeMarkdownCell(report.Tier.Class),
		escapeMarkdownCell(report.Identity),
	))
	sb.WriteString("| Step | Offset | Outcome | Detail |\n")
	sb.WriteString("|------|--------|---------|--------|\n")

	for _, step := range report.Steps {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
			step.Step,
			step.Offset,
			decisionLabel(step.Decision),
			escapeMarkdownCell(decisionDetail(step.Decision)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Allowed**: %d/%d\n", report.Allowed(), len(report.Steps)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
