package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"cdpmarklet/internal/settings"
	"cdpmarklet/internal/storage"
)

func newSettingsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or write stored settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [KEY]",
			Short: "Print one key, or the whole settings snapshot",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(g, func(ctx context.Context, s *storage.SettingsStore) error {
					if len(args) == 0 {
						snap, err := s.Load(ctx)
						if err != nil {
							return err
						}
						return writeJSON(cmd.OutOrStdout(), snap)
					}
					if err := checkKey(args[0]); err != nil {
						return err
					}
					raw, err := s.Get(ctx, args[0])
					if err != nil {
						return fmt.Errorf("%s: %w", args[0], err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), raw)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set KEY JSON",
			Short: "Store a JSON value under a settings key",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := checkKey(args[0]); err != nil {
					return err
				}
				return withSettings(g, func(ctx context.Context, s *storage.SettingsStore) error {
					return s.SetRaw(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "unset KEY",
			Short: "Remove a key so its default applies",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := checkKey(args[0]); err != nil {
					return err
				}
				return withSettings(g, func(ctx context.Context, s *storage.SettingsStore) error {
					return s.Delete(ctx, args[0])
				})
			},
		},
	)
	return cmd
}

func checkKey(key string) error {
	if !slices.Contains(settings.Keys, key) {
		return fmt.Errorf("unknown settings key %q", key)
	}
	return nil
}

func withSettings(g *globalFlags, fn func(context.Context, *storage.SettingsStore) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	l := newLogger(cfg)
	db, err := storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return fn(context.Background(), storage.NewSettingsStore(db, l))
}
