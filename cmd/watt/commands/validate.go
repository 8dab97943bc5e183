package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openwatt/openwatt/pkg/policy"
	"github.com/openwatt/openwatt/pkg/scenario"
	"github.com/openwatt/openwatt/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var (
		policyPaths []string
		noLint      bool
		watch       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "validate <scenario>",
		Short: "Validate a scenario file",
		Long: `Validate a scenario file against schemas and policies.

This command checks:
  - YAML syntax and unknown fields
  - CUE schema conformance
  - Cross-references between components, buses, and regions
  - Policy compliance (OPA/rego)

With --watch the command keeps running and re-lints the scenario
whenever a policy file under a --policy path changes.`,
		Example: `  # Validate a scenario
  watt validate scenario.yaml

  # Validate with custom lint policies
  watt validate --policy ./policies scenario.yaml

  # Keep linting as policies are edited
  watt validate --policy ./policies --watch scenario.yaml

  # Skip policy linting
  watt validate --no-lint scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sc, err := loadScenario(ctx, args[0])
			if err != nil {
				return err
			}

			log.Info().
				Str("scenario", sc.Name).
				Int("buses", len(sc.Buses)).
				Int("components", len(sc.Components)).
				Msg("Scenario is structurally valid")

			if noLint {
				fmt.Printf("Scenario %s is valid\n", sc.Name)
				return nil
			}

			telCfg := telemetry.DefaultConfig()
			telCfg.ServiceName = "watt"
			if metricsAddr != "" {
				telCfg.Metrics.Enabled = true
				telCfg.Metrics.ListenAddress = metricsAddr
			}
			tel, err := telemetry.NewTelemetry(telCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			if metricsAddr != "" {
				if err := tel.StartMetricsServer(); err != nil {
					return fmt.Errorf("failed to start metrics server: %w", err)
				}
			}

			eng, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("failed to create policy engine: %w", err)
			}
			eng.SetMetrics(tel.Metrics)

			if watch {
				if len(policyPaths) == 0 {
					return fmt.Errorf("--watch requires at least one --policy path")
				}
				if err := eng.WatchPolicies(ctx, policyPaths, func() {
					if _, err := lintScenario(ctx, eng, sc); err != nil {
						log.Error().Err(err).Msg("Policy evaluation failed")
					}
				}); err != nil {
					return err
				}

				if _, err := lintScenario(ctx, eng, sc); err != nil {
					return err
				}
				log.Info().Msg("Watching policy paths, press Ctrl+C to stop")
				<-ctx.Done()
				return nil
			}

			if len(policyPaths) > 0 {
				if err := eng.LoadPolicies(ctx, policyPaths); err != nil {
					return err
				}
			}

			result, err := lintScenario(ctx, eng, sc)
			if err != nil {
				return err
			}
			if !result.Allowed {
				return fmt.Errorf("scenario %s failed policy checks", sc.Name)
			}

			fmt.Printf("Scenario %s is valid\n", sc.Name)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "additional policy file or directory paths")
	cmd.Flags().BoolVar(&noLint, "no-lint", false, "skip policy linting")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-lint whenever a policy file changes")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address while linting")

	return cmd
}

// lintScenario evaluates the loaded policy set against a scenario and
// prints the outcome.
func lintScenario(ctx context.Context, eng *policy.Engine, sc *scenario.Scenario) (*policy.Result, error) {
	result, err := eng.Evaluate(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return nil, err
		}
		return result, nil
	}

	for _, v := range result.Violations {
		fmt.Printf("[%s] %s: %s\n", v.Severity, v.Policy, v.Message)
	}
	for _, w := range result.Warnings {
		fmt.Printf("[warning] %s\n", w)
	}
	if len(result.Violations) == 0 {
		fmt.Println("No policy violations")
	}

	return result, nil
}
