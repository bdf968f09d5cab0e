package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"

	"github.com/roelfdiedericks/pagesmith/internal/history"
	pshttp "github.com/roelfdiedericks/pagesmith/internal/http"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
	"github.com/roelfdiedericks/pagesmith/internal/paths"
	"github.com/roelfdiedericks/pagesmith/internal/skills"
)

type serveCmd struct {
	Listen string `short:"l" help:"Listen address, overriding the config."`
	QR     bool   `help:"Print a QR code of the server URL."`
}

func (c *serveCmd) Run(app *appContext) error {
	listen := app.cfg.Serve.Listen
	if c.Listen != "" {
		listen = c.Listen
	}

	var store *history.Store
	var sweeper *history.Sweeper
	if app.cfg.History.HistoryEnabled() {
		dbPath, err := paths.HistoryDBPath()
		if err != nil {
			return err
		}
		store, err = history.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		sweeper = history.NewSweeper(store, history.RetentionConfig{
			MaxAgeDays: app.cfg.History.MaxAgeDays,
			MaxRows:    app.cfg.History.MaxRows,
			Schedule:   app.cfg.History.PruneSchedule,
		})
		if err := sweeper.Start(); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	loader, err := openSkills(app)
	if err != nil {
		return err
	}

	var watcher *skills.Watcher
	if app.cfg.Skills.Watch {
		watcher, err = skills.NewWatcher(0, func() {
			if err := loader.Reload(); err != nil {
				L_error("skills: reload failed", "error", err)
			}
		})
		if err != nil {
			L_warn("skills: watcher unavailable", "error", err)
		} else {
			watcher.WatchDirs(loader.Dirs())
			watcher.Start()
			defer watcher.Stop()
		}
	}

	svc := pshttp.NewService(app.cfg, store, loader)
	server := pshttp.NewServer(pshttp.Options{
		Listen:     listen,
		AuthDigest: app.cfg.Serve.AuthTokenHash,
		RateLimit:  app.cfg.Serve.RateLimit,
	}, svc.Generate, store, loader, modelList(app))

	if err := server.Start(); err != nil {
		return err
	}

	url := listenURL(listen)
	fmt.Printf("pagesmith API listening on %s\n", url)
	if c.QR {
		qrterminal.GenerateHalfBlock(url, qrterminal.L, os.Stdout)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	L_info("shutting down")
	SetShuttingDown()
	time.Sleep(100 * time.Millisecond)
	return server.Stop()
}

func modelList(app *appContext) []pshttp.ModelInfo {
	models := make([]pshttp.ModelInfo, 0, len(app.cfg.Backends))
	for name, bcfg := range app.cfg.Backends {
		models = append(models, pshttp.ModelInfo{
			Backend: name,
			Driver:  bcfg.Driver,
			Model:   bcfg.Model,
			Default: name == app.cfg.Generation.DefaultBackend,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Backend < models[j].Backend })
	return models
}

func listenURL(listen string) string {
	host, port := listen, ""
	if h, p, ok := cutLast(listen, ":"); ok {
		host, port = h, p
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if port == "" {
		return "http://" + host
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}

func cutLast(s, sep string) (string, string, bool) {
	for i := len(s) - len(sep); i >= 0; i-- {
		if s[i:i+len(sep)] == sep {
			return s[:i], s[i+len(sep):], true
		}
	}
	return s, "", false
}
