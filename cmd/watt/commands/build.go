package commands

import (
	"fmt"
	"time"

	"github.com/openwatt/openwatt/pkg/scenario"
	"github.com/openwatt/openwatt/pkg/stores"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newBuildCommand() *cobra.Command {
	var (
		persist    bool
		timeStart  string
		timeStepMin int
	)

	cmd := &cobra.Command{
		Use:   "build <scenario>",
		Short: "Build an energy system from a scenario",
		Long: `Build a live energy system from a scenario file.

The scenario is parsed, validated, and materialized: buses and
components are created and connected, regions are attached, and
grouping rules are compiled. With --persist the entity records are
written to the SQLite store.`,
		Example: `  # Build and report
  watt build scenario.yaml

  # Build and persist entities to the store
  watt build --persist scenario.yaml

  # Build with an anchored time index
  watt build --time-start 2026-01-01T00:00:00Z scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sc, err := loadScenario(ctx, args[0])
			if err != nil {
				return err
			}

			opts := scenario.BuildOptions{Logger: log.Logger}
			if timeStart != "" {
				start, err := time.Parse(time.RFC3339, timeStart)
				if err != nil {
					return fmt.Errorf("invalid --time-start: %w", err)
				}
				opts.TimeIndexStart = start
				opts.TimeIndexStep = time.Duration(timeStepMin) * time.Minute
			}

			es, err := scenario.Build(sc, opts)
			if err != nil {
				return err
			}

			log.Info().
				Str("scenario", sc.Name).
				Int("entities", len(es.Entities())).
				Int("regions", len(es.Regions())).
				Msg("Energy system built")

			if persist {
				path, err := defaultDBPath()
				if err != nil {
					return err
				}

				store, err := stores.NewSQLiteStore(stores.Config{Path: path})
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

				records := sc.ToRecords()
				for _, rec := range records {
					if err := store.UpsertEntity(ctx, rec); err != nil {
						return fmt.Errorf("failed to persist entity %s: %w", rec.UID, err)
					}
				}

				log.Info().
					Int("records", len(records)).
					Str("db", path).
					Msg("Entities persisted")
			}

			fmt.Printf("Built %s: %d entities, %d regions, %d timesteps\n",
				sc.Name, len(es.Entities()), len(es.Regions()), len(es.Simulation().Timesteps))
			return nil
		},
	}

	cmd.Flags().BoolVar(&persist, "persist", false, "persist entity records to the SQLite store")
	cmd.Flags().StringVar(&timeStart, "time-start", "", "RFC3339 start of the time index")
	cmd.Flags().IntVar(&timeStepMin, "time-step", 60, "time index step in minutes")

	return cmd
}
