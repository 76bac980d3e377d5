package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gatewarden/gatewarden/internal/output"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

var (
	tiersListOutput string
	tiersListOut    string
	tiersListOutDir string
	tiersPolicyFile string
)

// loadCLIRegistry builds the registry the same way serve does: defaults,
// then the policy file (flag wins over config), then inline config tiers.
func loadCLIRegistry() (*ratelimit.Registry, error) {
	overrides := map[string]ratelimit.TierOverride{}

	policyFile := strings.TrimSpace(tiersPolicyFile)
	if policyFile == "" {
		policyFile = viper.GetString("rate_limit.policy_file")
	}
	if policyFile != "" {
		fileOverrides, err := ratelimit.LoadPolicyFile(policyFile)
		if err != nil {
			return nil, err
		}
		overrides = fileOverrides
	}

	var inline map[string]ratelimit.TierOverride
	if err := viper.UnmarshalKey("rate_limit.tiers", &inline); err != nil {
		return nil, err
	}
	overrides = ratelimit.MergeOverrides(overrides, inline)

	return ratelimit.NewRegistry(overrides)
}

var tiersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured admission tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(tiersListOutput)
		if err != nil {
			return err
		}

		registry, err := loadCLIRegistry()
		if err != nil {
			return err
		}

		outPath := strings.TrimSpace(tiersListOut)
		outDir := strings.TrimSpace(tiersListOutDir)
		if outPath != "" && outDir != "" {
			return fmt.Errorf("--out and --out-dir are mutually exclusive")
		}

		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("tiers.list.%s", outputExtension(format)))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatTiers(registry.Tiers())
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	tiersListCmd.Flags().StringVar(&tiersListOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	tiersListCmd.Flags().StringVar(&tiersListOut, "out", "", "Write output to a file (default stdout)")
	tiersListCmd.Flags().StringVar(&tiersListOutDir, "out-dir", "", "Write output to a directory")
	tiersCmd.PersistentFlags().StringVar(&tiersPolicyFile, "policy-file", "", "Tier policy overrides file (YAML)")
}
