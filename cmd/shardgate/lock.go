package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nsrs/shardgate/pkg/dlock"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/qdb"
)

var (
	lockTimeout time.Duration
	lockLease   time.Duration
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "inspect and manage distributed locks",
}

// withLock opens the configured lock store for the duration of fn.
func withLock(fn func(l *dlock.Lock) error) error {
	store, err := qdb.NewQDB(&cfg.QDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			sglog.Zero.Error().Err(err).Msg("shardgate: failed to close lock store")
		}
	}()
	return fn(dlock.New(store, &cfg.Lock))
}

var lockTryCmd = &cobra.Command{
	Use:   "try <key>",
	Short: "acquire a lock and print its token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLock(func(l *dlock.Lock) error {
			token, ok := l.TryLockTimeout(cmd.Context(), args[0], lockTimeout, lockLease)
			if !ok {
				return errors.Errorf("lock %s not acquired", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		})
	},
}

var lockUnlockCmd = &cobra.Command{
	Use:   "unlock <key> <token>",
	Short: "release a lock held by token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLock(func(l *dlock.Lock) error {
			if !l.Unlock(cmd.Context(), args[0], dlock.Token(args[1])) {
				return errors.Errorf("lock %s is not held by this token", args[0])
			}
			return nil
		})
	},
}

var lockStatusCmd = &cobra.Command{
	Use:   "status [key]",
	Short: "show one lock, or list all live locks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLock(func(l *dlock.Lock) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				switch ttl := l.ExpireTime(cmd.Context(), args[0]); ttl {
				case dlock.ExpireAbsent:
					fmt.Fprintf(out, "%s\tunlocked\n", args[0])
				case dlock.ExpireNever:
					fmt.Fprintf(out, "%s\tlocked\tno expiry\n", args[0])
				default:
					fmt.Fprintf(out, "%s\tlocked\t%ds\n", args[0], ttl)
				}
				return nil
			}

			locks, err := l.Locks(cmd.Context())
			if err != nil {
				return err
			}
			for _, rec := range locks {
				fmt.Fprintf(out, "%s\t%s\t%s\n", rec.Key, rec.Owner, rec.TTL.Round(time.Second))
			}
			return nil
		})
	},
}

func init() {
	lockTryCmd.Flags().DurationVar(&lockTimeout, "timeout", 0, "how long to wait for the lock, 0 for one attempt")
	lockTryCmd.Flags().DurationVar(&lockLease, "lease", 0, "lease time, 0 for the configured default")

	lockCmd.AddCommand(lockTryCmd, lockUnlockCmd, lockStatusCmd)
}
