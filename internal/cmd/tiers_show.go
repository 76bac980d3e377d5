package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/internal/output"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

var tiersShowOutput string

var tiersShowCmd = &cobra.Command{
	Use:   "show <class>",
	Short: "Show one tier's admission policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(tiersShowOutput)
		if err != nil {
			return err
		}

		registry, err := loadCLIRegistry()
		if err != nil {
			return err
		}

		class := strings.TrimSpace(args[0])
		tier, ok := registry.Get(class)
		if !ok {
			return fmt.Errorf("unknown tier class: %s", class)
		}

		if format == output.FormatJSON || format == output.FormatMarkdown {
			rendered, err := output.NewFormatter(format).FormatTiers([]ratelimit.Tier{tier})
			if err != nil {
				return err
			}
			fmt.Println(rendered)
			return nil
		}

		lines := []string{
			fmt.Sprintf("Tier: %s", tier.Class),
			"",
			fmt.Sprintf("Max operations: %d", tier.MaxOperations),
			fmt.Sprintf("Window:         %s", tier.Window),
			fmt.Sprintf("Sustained rate: %.2f ops/s", float64(tier.MaxOperations)/tier.Window.Seconds()),
		}
		fmt.Print(ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	},
}

func init() {
	tiersShowCmd.Flags().StringVar(&tiersShowOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
}
