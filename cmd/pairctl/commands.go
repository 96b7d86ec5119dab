package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/repository"
)

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func newRootCmd(connectFn connectFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "pairctl",
		Short:        "Inspect and administer pairs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFn(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			appFrom(cmd).Close()
		},
	}
	root.SetContext(context.Background())

	root.AddCommand(
		newInspectCmd(),
		newUnlinkCmd(),
		newPairsCmd(),
		newEnergyCmd(),
		newHistoryCmd(),
	)
	return root
}

type inspection struct {
	PairID           string            `json:"pairId"`
	Versions         map[string]int64  `json:"versions"`
	LastUpdated      string            `json:"lastUpdated,omitempty"`
	Ecology          map[string]string `json:"ecology"`
	Blocked          bool              `json:"blocked"`
	BlockedRemaining string            `json:"blockedRemaining,omitempty"`
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <pairId>",
		Short: "Show shared state, ecology and blocklist status for a pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			pairID := args[0]

			state, err := a.state.Get(ctx, pairID)
			if err != nil {
				return err
			}
			ecology, err := a.redis.HGetAll(ctx, redisclient.EcologyKey(pairID)).Result()
			if err != nil {
				return fmt.Errorf("read ecology: %w", err)
			}
			blocked, err := a.blocklist.IsBlocked(ctx, pairID)
			if err != nil {
				return err
			}

			out := inspection{
				PairID:      pairID,
				Versions:    make(map[string]int64, len(state.Versions)),
				LastUpdated: state.LastUpdated,
				Ecology:     ecology,
				Blocked:     blocked,
			}
			for c, v := range state.Versions {
				out.Versions[string(c)] = v
			}
			if blocked {
				remaining, err := a.blocklist.Remaining(ctx, pairID)
				if err != nil {
					return err
				}
				out.BlockedRemaining = remaining.String()
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <pairId>",
		Short: "Block a pair as if a partner had disconnected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appFrom(cmd).blocklist.Unlink(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlinked %s\n", args[0])
			return nil
		},
	}
}

func newPairsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "List pairs that have shared state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := appFrom(cmd).redis.ScanKeys(cmd.Context(), redisclient.StateKey("*"), limit)
			if err != nil {
				return fmt.Errorf("scan pairs: %w", err)
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), redisclient.StatePairID(key))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of pairs to list (0 for all)")
	return cmd
}

func newEnergyCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "energy <pairId>",
		Short: "Compute the sync energy of a pair for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				asOf = parsed
			}

			energy, err := appFrom(cmd).energy.Compute(cmd.Context(), args[0], asOf)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), energy)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to compute as of (YYYY-MM-DD, default today)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <pairId>",
		Short: "Show the pairing ledger for a pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if _, ok := a.ledger.(repository.NopLedger); ok {
				return errors.New("history needs DATABASE_URL")
			}

			entries, err := a.ledger.FindByPairID(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of entries")
	return cmd
}
