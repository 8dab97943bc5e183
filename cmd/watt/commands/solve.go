package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/openwatt/openwatt/pkg/scenario"
	"github.com/openwatt/openwatt/pkg/solver"
	"github.com/openwatt/openwatt/pkg/stores"
	"github.com/openwatt/openwatt/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSolveCommand() *cobra.Command {
	var (
		solverName  string
		persist     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "solve <scenario>",
		Short: "Solve a scenario",
		Long: `Build an energy system from a scenario and run the solver.

The scenario's configured solver backend dispatches the system over its
timesteps and produces a flow series per entity. With --persist the
result series are written to the SQLite store.`,
		Example: `  # Solve with the scenario's configured solver
  watt solve scenario.yaml

  # Override the solver backend
  watt solve --solver balance scenario.yaml

  # Persist result series to the store
  watt solve --persist scenario.yaml

  # Expose Prometheus metrics while solving
  watt solve --metrics :9090 scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sc, err := loadScenario(ctx, args[0])
			if err != nil {
				return err
			}

			if solverName != "" {
				sc.Simulation.Solver = solverName
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

			es, err := scenario.Build(sc, scenario.BuildOptions{
				Logger:  log.Logger,
				Metrics: tel.Metrics,
			})
			if err != nil {
				return err
			}

			runner := solver.NewRunner(solver.NewRegistry(), tel)
			run, err := runner.Run(ctx, es)
			if err != nil {
				return err
			}

			log.Info().
				Str("run_id", run.RunID).
				Str("solver", run.Solver).
				Dur("duration", run.Duration).
				Int("series", len(run.Results)).
				Msg("Solve completed")

			if persist {
				if err := persistResults(cmd, sc, run, tel.Metrics); err != nil {
					return err
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			uids := make([]string, 0, len(run.Results))
			for uid := range run.Results {
				uids = append(uids, uid)
			}
			sort.Strings(uids)

			fmt.Printf("Run %s (%s, %s)\n", run.RunID, run.Solver, run.Duration)
			for _, uid := range uids {
				fmt.Printf("  %s: %v\n", uid, run.Results[uid])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&solverName, "solver", "", "override the scenario's solver backend")
	cmd.Flags().BoolVar(&persist, "persist", false, "persist result series to the SQLite store")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address while solving")

	return cmd
}

// persistResults writes one series record per entity to the store.
// Entity records go in first so the series foreign keys resolve.
func persistResults(cmd *cobra.Command, sc *scenario.Scenario, run *solver.RunResult, metrics *telemetry.Metrics) error {
	ctx := cmd.Context()

	path, err := defaultDBPath()
	if err != nil {
		return err
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path, Metrics: metrics})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	for _, rec := range sc.ToRecords() {
		if err := store.UpsertEntity(ctx, rec); err != nil {
			return fmt.Errorf("failed to persist entity %s: %w", rec.UID, err)
		}
	}

	seriesName := fmt.Sprintf("flow:%s", run.RunID)
	for uid, values := range run.Results {
		rec := &stores.SeriesRecord{
			EntityUID: uid,
			Name:      seriesName,
			Values:    values,
		}
		if err := store.PutSeries(ctx, rec); err != nil {
			return fmt.Errorf("failed to persist series for %s: %w", uid, err)
		}
	}

	log.Info().
		Str("scenario", sc.Name).
		Str("series", seriesName).
		Int("entities", len(run.Results)).
		Str("db", path).
		Msg("Result series persisted")

	return nil
}
