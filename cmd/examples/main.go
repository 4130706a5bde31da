// Command examples is a minimal host program demonstrating how an
// application wires switcher.BuildContext from config and evaluates a
// flag on the request path.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	switcherclient "github.com/switcherapi/switcher-client-go"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	key := flag.String("key", "FF2FOR2030", "feature key to evaluate")
	flag.Parse()

	cfg, err := loadHostConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	err = switcherclient.BuildContext(switcherclient.ContextOpts{
		Domain:      cfg.Domain,
		URL:         cfg.URL,
		APIKey:      cfg.APIKey,
		Component:   cfg.Component,
		Environment: cfg.Environment,
		Options: switcherclient.Options{
			Local:                      cfg.Local,
			Logger:                     logger,
			SilentMode:                 cfg.SilentMode,
			SnapshotAutoUpdateInterval: cfg.AutoUpdate,
		},
	})
	if err != nil {
		slog.Error("building switcher context", "error", err)
		os.Exit(1)
	}

	if err := switcherclient.LoadSnapshot(); err != nil {
		slog.Error("loading snapshot", "error", err)
		os.Exit(1)
	}

	switcherclient.SubscribeNotifyError(func(err error) {
		slog.Warn("switcher background error", "error", err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	on, err := switcherclient.GetSwitcher(*key).
		CheckValue(os.Getenv("USER_ID")).
		IsOn(ctx)
	if err != nil {
		slog.Error("evaluating switcher", "key", *key, "error", err)
		os.Exit(1)
	}

	slog.Info("evaluated switcher", "key", *key, "result", on)
}
