package main

import (
	"github.com/spf13/cobra"

	"cdpmarklet/internal/config"
	"cdpmarklet/internal/logger"
)

// globalFlags 所有子命令共享的参数
type globalFlags struct {
	configPath string
	devtools   string
	dsn        string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "cdpmarklet",
		Short:         "Page stopwatch and bookmarklet automation over the Chrome DevTools Protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file")
	pf.StringVar(&g.devtools, "devtools", "", "DevTools HTTP endpoint, e.g. http://127.0.0.1:9222")
	pf.StringVar(&g.dsn, "db", "", "SQLite database file")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(g),
		newTargetsCmd(g),
		newDecodeCmd(),
		newAnalyzeCmd(),
		newReplayCmd(),
		newSettingsCmd(g),
	)
	return root
}

// load 读取配置文件并用命令行参数覆盖
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.devtools != "" {
		cfg.DevTools.URL = g.devtools
	}
	if g.dsn != "" {
		cfg.Sqlite.Dsn = g.dsn
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Writers: cfg.Log.Writer,
		File:    cfg.Log.File,
	})
}
