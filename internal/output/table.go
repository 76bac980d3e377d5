package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

// TableFormatter renders output as an ASCII table.
type TableFormatter struct{}

// FormatTiers renders the tier registry as a table.
func (f *TableFormatter) FormatTiers(tiers []ratelimit.Tier) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Tier", "Max Operations", "Window"})

	for _, tier := range tiers {
		t.AppendRow(table.Row{
			tier.Class,
			tier.MaxOperations,
			tier.Window.String(),
		})
	}

	return t.Render(), nil
}

// FormatSimulation renders a simulation trace as a table.
func (f *TableFormatter) FormatSimulation(report *SimulationReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Step", "Offset", "Outcome", "Detail"})

	for _, step := range report.Steps {
		t.AppendRow(table.Row{
			step.Step,
			step.Offset.String(),
			decisionLabel(step.Decision),
			decisionDetail(step.Decision),
		})
	}

	t.AppendFooter(table.Row{
		"",
		"",
		fmt.Sprintf("%d/%d allowed", report.Allowed(), len(report.Steps)),
		fmt.Sprintf("tier %s (%d/%s)", report.Tier.Class, report.Tier.MaxOperations, report.Tier.Window),
	})

	return t.Render(), nil
}
