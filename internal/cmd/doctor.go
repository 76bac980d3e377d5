package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/gatewarden/gatewarden/internal/config"
	errwrap "github.com/gatewarden/gatewarden/internal/errors"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		identity := GetAppIdentity()
		bannerName := "doctor"
		if identity != nil && identity.BinaryName != "" {
			bannerName = identity.BinaryName + " doctor"
		}
		observability.CLILogger.Info("=== " + bannerName + " ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 8

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Crucible access
		version := crucible.GetVersion()
		if version.Crucible != "" {
			observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking Crucible access... ✅ v%s", totalChecks, version.Crucible), zap.String("crucible_version", version.Crucible))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[2/%d] Checking Crucible access... ❌ Cannot access Crucible", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Cannot access Crucible", errwrap.NewExternalServiceError("Crucible service unavailable"))
			allChecks = false
		}

		// Check 3: Gofulmen access
		if version.Gofulmen != "" {
			observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking Gofulmen access... ✅ v%s", totalChecks, version.Gofulmen), zap.String("gofulmen_version", version.Gofulmen))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[3/%d] Checking Gofulmen access... ❌ Cannot access Gofulmen", totalChecks))
			allChecks = false
		}

		// Check 4: Config directory
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			observability.CLILogger.Error(fmt.Sprintf("[4/%d] Checking config directory... ❌ Cannot resolve config directory", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
			allChecks = false
		} else {
			configDir := filepath.Dir(configPath)
			observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking config directory... ✅ %s", totalChecks, configDir), zap.String("config_dir", configDir))
		}

		// Check 5: Environment
		observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking environment... ✅ %s/%s", totalChecks, runtime.GOOS, runtime.GOARCH),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		// Check 6: Config load
		cfg, cfgErr := config.Load(ctx)
		if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking configuration... ⚠️  config not loaded", totalChecks), zap.Error(cfgErr))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking configuration... ✅ %s:%d", totalChecks, cfg.Server.Host, cfg.Server.Port),
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
		}

		// Check 7: Tier policy
		if cfgErr == nil {
			policyFile := strings.TrimSpace(cfg.RateLimit.PolicyFile)
			overrides := cfg.RateLimit.Tiers
			if policyFile != "" {
				fileOverrides, policyErr := ratelimit.LoadPolicyFile(policyFile)
				if policyErr != nil {
					observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking tier policy... ⚠️  %s (error: %v)", totalChecks, policyFile, policyErr),
						zap.String("policy_file", policyFile),
						zap.Error(policyErr))
					allChecks = false
					overrides = nil
				} else {
					overrides = ratelimit.MergeOverrides(fileOverrides, overrides)
				}
			}
			if overrides != nil || policyFile == "" {
				registry, regErr := ratelimit.NewRegistry(overrides)
				if regErr != nil {
					observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking tier policy... ⚠️  invalid overrides: %v", totalChecks, regErr), zap.Error(regErr))
					allChecks = false
				} else {
					observability.CLILogger.Info(fmt.Sprintf("[7/%d] Checking tier policy... ✅ %d tiers", totalChecks, len(registry.Tiers())),
						zap.Int("tier_count", len(registry.Tiers())))
				}
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking tier policy... ⚠️  skipped (config not loaded)", totalChecks))
		}

		// Check 8: Sweep interval
		if cfgErr == nil {
			interval := cfg.RateLimit.SweepInterval
			if interval <= 0 {
				observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking sweep interval... ⚠️  %s (falling back to %s)", totalChecks, interval, ratelimit.DefaultSweepInterval))
			} else if interval < time.Second {
				observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking sweep interval... ⚠️  %s (very aggressive; consider 1s or more)", totalChecks, interval),
					zap.Duration("sweep_interval", interval))
			} else {
				observability.CLILogger.Info(fmt.Sprintf("[8/%d] Checking sweep interval... ✅ %s", totalChecks, interval),
					zap.Duration("sweep_interval", interval))
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking sweep interval... ⚠️  skipped (config not loaded)", totalChecks))
		}

		observability.CLILogger.Info("")
		if allChecks {
			appName := "gatewarden"
			if identity != nil && identity.BinaryName != "" {
				appName = identity.BinaryName
			}
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

var (
	doctorInitForce   bool
	doctorResetConfig bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig()), 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		configExists := fileExists(configPath)

		dataDir := config.DefaultDataDir()
		cacheDir := config.DefaultCacheDir()

		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(configExists)))
		if dataDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		} else {
			observability.CLILogger.Info("  Data directory: (not resolved)")
		}
		if cacheDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Cache directory: %s (%s)", cacheDir, existenceStatus(fileExists(cacheDir))))
		} else {
			observability.CLILogger.Info("  Cache directory: (not resolved)")
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return nil
		}

		if policyFile := strings.TrimSpace(cfg.RateLimit.PolicyFile); policyFile != "" {
			absPath, _ := filepath.Abs(policyFile)
			observability.CLILogger.Info(fmt.Sprintf("  Policy file:   %s (%s)", absPath, existenceStatus(fileExists(absPath))))
		} else {
			observability.CLILogger.Info("  Policy file:   (defaults)")
		}

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Environment:")
		prefix := "GATEWARDEN_"
		if identity := GetAppIdentity(); identity != nil && identity.EnvPrefix != "" {
			prefix = identity.EnvPrefix
		}
		observability.CLILogger.Info("  " + prefix + "PORT: " + envStatus(prefix+"PORT"))
		observability.CLILogger.Info("  " + prefix + "RATE_LIMIT_ENABLED: " + envStatus(prefix+"RATE_LIMIT_ENABLED"))
		observability.CLILogger.Info("  " + prefix + "RATE_LIMIT_POLICY_FILE: " + envStatus(prefix+"RATE_LIMIT_POLICY_FILE"))

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Effective Settings:")
		observability.CLILogger.Info(fmt.Sprintf("  rate_limit.enabled: %t", cfg.RateLimit.Enabled))
		observability.CLILogger.Info(fmt.Sprintf("  rate_limit.sweep_interval: %s", cfg.RateLimit.SweepInterval))
		observability.CLILogger.Info(fmt.Sprintf("  rate_limit.trust_proxy_headers: %t", cfg.RateLimit.TrustProxyHeaders))

		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !doctorResetConfig {
			return fmt.Errorf("specify --config")
		}

		configPath := config.DefaultConfigPath()
		if configPath == "" {
			observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			return nil
		}
		if err := os.Remove(configPath); err == nil {
			observability.CLILogger.Info("Config removed", zap.String("path", configPath))
		} else if os.IsNotExist(err) {
			observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
		} else {
			return fmt.Errorf("remove config file: %w", err)
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}

		// Resolve the full policy so bad tier overrides surface here, not at serve time.
		overrides := cfg.RateLimit.Tiers
		if policyFile := strings.TrimSpace(cfg.RateLimit.PolicyFile); policyFile != "" {
			fileOverrides, policyErr := ratelimit.LoadPolicyFile(policyFile)
			if policyErr != nil {
				return fmt.Errorf("policy file %s: %w", policyFile, policyErr)
			}
			overrides = ratelimit.MergeOverrides(fileOverrides, overrides)
		}
		if _, err := ratelimit.NewRegistry(overrides); err != nil {
			return fmt.Errorf("tier overrides: %w", err)
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
}

func buildInitConfig() string {
	lines := []string{
		"# gatewarden config - created by 'gatewarden doctor init'",
		"server:",
		"  host: localhost",
		"  port: 8080",
		"rate_limit:",
		"  enabled: true",
		"  sweep_interval: 5m",
		"  trust_proxy_headers: false",
		"  # policy_file: /etc/gatewarden/policy.yaml",
		"  tiers: {}",
		"  # tiers:",
		"  #   ai:",
		"  #     max_operations: 10",
		"  #     window: 60s",
		"logging:",
		"  level: info",
	}

	return strings.Join(lines, "\n") + "\n"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
