package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/openwatt/openwatt/pkg/stores"
	"github.com/openwatt/openwatt/pkg/weather"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newFetchCommand() *cobra.Command {
	var (
		host       string
		port       int
		user       string
		keyPath    string
		password   string
		insecure   bool
		localFile  string
		entityUID  string
	)

	cmd := &cobra.Command{
		Use:   "fetch <remote-path>",
		Short: "Fetch weather series data",
		Long: `Fetch a CSV weather series from an SFTP server or a local file.

The CSV must carry a header row; a "timestamp" column (RFC3339) becomes
the series index and every other column becomes a named series. With
--entity the series are stored in the SQLite store under that entity.`,
		Example: `  # Fetch from an SFTP server with key auth
  watt fetch --host data.example.com --user climate /data/wind_2026.csv

  # Read a local CSV instead
  watt fetch --file ./wind_2026.csv

  # Fetch and store under an entity
  watt fetch --file ./wind_2026.csv --entity wind_park_1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				ds  *weather.Dataset
				err error
			)

			switch {
			case localFile != "":
				ds, err = weather.LoadFile(localFile)
				if err != nil {
					return err
				}
			case len(args) == 1:
				cfg := weather.DefaultFetchConfig(host, user)
				cfg.Port = port
				cfg.PrivateKeyPath = keyPath
				if cfg.PrivateKeyPath == "" {
					cfg.PrivateKeyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
				}
				if password != "" {
					cfg.AuthMethod = weather.AuthMethodPassword
					cfg.Password = password
				}
				if insecure {
					cfg.StrictHostKeyChecking = false
				}

				fetcher, err := weather.NewFetcher(cfg, log.Logger)
				if err != nil {
					return err
				}

				ds, err = fetcher.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("either a remote path or --file is required")
			}

			names := make([]string, 0, len(ds.Series))
			for name := range ds.Series {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Printf("Loaded %d rows, %d series\n", ds.Len(), len(ds.Series))
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}

			if entityUID == "" {
				return nil
			}

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

			// The series table references entities, so make sure the
			// target entity exists before storing under it.
			if _, err := store.GetEntity(ctx, entityUID); err != nil {
				rec := &stores.EntityRecord{UID: entityUID, Kind: "component"}
				if err := store.UpsertEntity(ctx, rec); err != nil {
					return fmt.Errorf("failed to register entity %s: %w", entityUID, err)
				}
			}

			if err := weather.SaveSeries(ctx, store, entityUID, ds); err != nil {
				return err
			}

			log.Info().
				Str("entity", entityUID).
				Int("series", len(ds.Series)).
				Str("db", path).
				Msg("Weather series stored")

			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "SFTP server host")
	cmd.Flags().IntVar(&port, "port", 22, "SFTP server port")
	cmd.Flags().StringVar(&user, "user", "", "SFTP username")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key path (default ~/.ssh/id_rsa)")
	cmd.Flags().StringVar(&password, "password", "", "SSH password (switches to password auth)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "disable strict host key checking")
	cmd.Flags().StringVar(&localFile, "file", "", "read a local CSV file instead of fetching")
	cmd.Flags().StringVar(&entityUID, "entity", "", "store the series under this entity uid")

	return cmd
}
