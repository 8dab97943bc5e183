package commands

import (
	"fmt"

	"github.com/openwatt/openwatt/pkg/scenario"
	"github.com/openwatt/openwatt/pkg/snapshot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDumpCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "dump <scenario>",
		Short: "Dump an energy system snapshot",
		Long: `Build an energy system from a scenario and dump it to a snapshot file.

The snapshot captures entities, wiring, regions, the simulation record,
the time index, and any results. By default it is written to
~/.openwatt/dumps/es_dump.watt.`,
		Example: `  # Dump to the default location
  watt dump scenario.yaml

  # Dump to a specific file
  watt dump --out ./model.watt scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sc, err := loadScenario(ctx, args[0])
			if err != nil {
				return err
			}

			es, err := scenario.Build(sc, scenario.BuildOptions{Logger: log.Logger})
			if err != nil {
				return err
			}

			path, err := snapshot.Dump(es, outPath, log.Logger)
			if err != nil {
				return err
			}

			fmt.Printf("Dumped %s to %s\n", sc.Name, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "snapshot output path (default ~/.openwatt/dumps/es_dump.watt)")

	return cmd
}
