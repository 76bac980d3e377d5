package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/internal/output"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

var (
	simulateTier     string
	simulateKey      string
	simulateCount    int
	simulateInterval time.Duration
	simulateOutput   string
	simulateOut      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay admission decisions against a tier offline",
	Long: `Replay a sequence of operations for one identity against a tier using
an isolated in-memory store and a simulated clock. No server or shared
state is involved; the trace shows exactly when the tier starts denying
and when the identity recovers.`,
	Example: `  gatewarden simulate --tier ai -n 8
  gatewarden simulate --tier upload --key alice --interval 5s -n 20
  gatewarden simulate --tier write -n 40 --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(simulateOutput)
		if err != nil {
			return err
		}

		if simulateCount <= 0 {
			return fmt.Errorf("-n must be positive")
		}
		if simulateInterval < 0 {
			return fmt.Errorf("--interval must not be negative")
		}

		registry, err := loadCLIRegistry()
		if err != nil {
			return err
		}

		class := strings.TrimSpace(simulateTier)
		tier, ok := registry.Get(class)
		if !ok {
			return fmt.Errorf("unknown tier class: %s", class)
		}

		identity := ratelimit.IdentityKey(simulateKey, "simulator")

		// Simulated clock: starts at a fixed instant, advances by the
		// interval per step.
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		now := base
		limiter := &ratelimit.Limiter{
			Store: ratelimit.NewStore(),
			Clock: func() time.Time { return now },
		}

		report := &output.SimulationReport{
			Tier:     tier,
			Identity: identity,
			Interval: simulateInterval,
			Steps:    make([]output.SimulationStep, 0, simulateCount),
		}

		for i := 0; i < simulateCount; i++ {
			now = base.Add(time.Duration(i) * simulateInterval)
			decision := limiter.Allow(tier, identity)
			report.Steps = append(report.Steps, output.SimulationStep{
				Step:     i + 1,
				Offset:   now.Sub(base),
				Decision: decision,
			})
		}

		sink, err := openSink(simulateOut)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatSimulation(report)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateTier, "tier", "", "Tier class to simulate against (required)")
	simulateCmd.Flags().StringVar(&simulateKey, "key", "", "Identity subject (defaults to anonymous)")
	simulateCmd.Flags().IntVarP(&simulateCount, "count", "n", 10, "Number of operations to replay")
	simulateCmd.Flags().DurationVar(&simulateInterval, "interval", time.Second, "Simulated time between operations")
	simulateCmd.Flags().StringVar(&simulateOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	simulateCmd.Flags().StringVar(&simulateOut, "out", "", "Write output to a file (default stdout)")

	_ = simulateCmd.MarkFlagRequired("tier")
}
