package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/openwatt/openwatt/pkg/scenario"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newGroupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups <scenario>",
		Short: "Show the group mapping of a scenario",
		Long: `Build an energy system from a scenario and print its group mapping.

Grouping rules are evaluated lazily; this command forces the fold and
reports every bucket with its members. A failing rule surfaces here.`,
		Example: `  # List group buckets
  watt groups scenario.yaml

  # Machine-readable output
  watt groups --json scenario.yaml`,
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

			groups, err := es.Groups()
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(groups))
			for key := range groups {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			if jsonOutput {
				out := make(map[string][]string, len(groups))
				for _, key := range keys {
					members := groups[key].Members()
					uids := make([]string, 0, len(members))
					for _, m := range members {
						uids = append(uids, m.UID())
					}
					sort.Strings(uids)
					out[key] = uids
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for _, key := range keys {
				bucket := groups[key]
				members := bucket.Members()
				uids := make([]string, 0, len(members))
				for _, m := range members {
					uids = append(uids, m.UID())
				}
				sort.Strings(uids)
				fmt.Printf("%s (%d):\n", key, bucket.Len())
				for _, uid := range uids {
					fmt.Printf("  %s\n", uid)
				}
			}

			return nil
		},
	}

	return cmd
}
