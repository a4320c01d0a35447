package cli

import (
	"errors"
	"fmt"

	"github.com/celerix-dev/looply/internal/engine"
	"github.com/celerix-dev/looply/pkg/sdk"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(s *session) *cobra.Command {
	var to, from string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every profile between the local data directory and a daemon",
		Long: `Copy every profile between the embedded store in the data directory and a
looply-stored daemon. Profiles that exist on both sides are replaced.`,
		Example: `  looply migrate --to 127.0.0.1:7001    # local -> daemon
  looply migrate --from 127.0.0.1:7001  # daemon -> local backup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (to == "") == (from == "") {
				return NewCLIError("pass exactly one of --to or --from", "See 'looply migrate --help'", nil)
			}

			local := s.cfg
			local.StoreAddr = ""
			remote := s.cfg
			remote.StoreAddr = to + from

			localStore, err := s.app.Open(local, s.log)
			if err != nil {
				return fmt.Errorf("open local store: %w", err)
			}
			remoteStore, err := s.app.Open(remote, s.log)
			if err != nil {
				return errors.Join(fmt.Errorf("open remote store: %w", err), localStore.Close())
			}

			src, dst := localStore, remoteStore
			if from != "" {
				src, dst = remoteStore, localStore
			}
			n, err := engine.Migrate(src, dst)
			closeErr := closeAll(s.log, localStore, remoteStore)
			if err != nil {
				return fmt.Errorf("migrated %d profile(s) before failing: %w", n, err)
			}
			if closeErr != nil {
				return closeErr
			}

			if s.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]int{"migrated": n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusDone.Render(fmt.Sprintf("Migrated %d profile(s).", n)))
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "daemon address to copy local data to")
	cmd.Flags().StringVar(&from, "from", "", "daemon address to copy data from")
	return cmd
}

func closeAll(log *zap.Logger, stores ...sdk.Store) error {
	var errs []error
	for _, st := range stores {
		if err := st.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
