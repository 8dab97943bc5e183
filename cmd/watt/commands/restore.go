package commands

import (
	"fmt"

	"github.com/openwatt/openwatt/pkg/energy"
	"github.com/openwatt/openwatt/pkg/snapshot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRestoreCommand() *cobra.Command {
	var inPath string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore an energy system from a snapshot",
		Long: `Restore an energy system from a snapshot file and report its contents.

The restored system replaces whatever the target container held. By
default the snapshot is read from ~/.openwatt/dumps/es_dump.watt.

Grouping rules are not stored in snapshots; a restored system carries
only the default uid grouping.`,
		Example: `  # Restore from the default location
  watt restore

  # Restore from a specific file
  watt restore --in ./model.watt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			es, err := energy.New(energy.Config{Logger: log.Logger})
			if err != nil {
				return err
			}

			if err := snapshot.Restore(es, inPath, snapshot.RestoreOptions{Logger: log.Logger}); err != nil {
				return err
			}

			sim := es.Simulation()
			timesteps := 0
			solverName := "none"
			if sim != nil {
				timesteps = len(sim.Timesteps)
				solverName = sim.Solver
			}

			fmt.Printf("Restored %d entities, %d regions, solver %s, %d timesteps\n",
				len(es.Entities()), len(es.Regions()), solverName, timesteps)
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "snapshot input path (default ~/.openwatt/dumps/es_dump.watt)")

	return cmd
}
