package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cdpmarklet/internal/logger"
	"cdpmarklet/pkg/api"
	"cdpmarklet/pkg/model"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach to a page and run its stopwatch session until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if target == "" {
				target = cfg.DevTools.Target
			}
			l := newLogger(cfg)
			svc, err := api.NewService(cfg, l)
			if err != nil {
				return err
			}
			defer closeService(svc, l)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			id, err := svc.AttachPage(ctx, model.TargetID(target))
			if err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			done, err := svc.Done(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s attached\n", id)

			select {
			case <-ctx.Done():
				l.Info("收到退出信号", "session", string(id))
			case <-done:
				l.Warn("页面已断开，会话结束", "session", string(id))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "page target id (default: first page)")
	return cmd
}

func newTargetsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List page targets of the DevTools endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			l := newLogger(cfg)
			svc, err := api.NewService(cfg, l)
			if err != nil {
				return err
			}
			defer closeService(svc, l)

			targets, err := svc.ListTargets(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range targets {
				fmt.Fprintf(out, "%s\t%s\t%s\n", t.ID, t.Title, t.URL)
			}
			return nil
		},
	}
}

type closer interface {
	Close(ctx context.Context) error
}

func closeService(svc closer, l logger.Logger) {
	if err := svc.Close(context.Background()); err != nil {
		l.Warn("关闭服务失败", "error", err)
	}
}
