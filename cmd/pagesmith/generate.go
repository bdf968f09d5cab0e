package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/roelfdiedericks/pagesmith/internal/engine"
	"github.com/roelfdiedericks/pagesmith/internal/history"
	pshttp "github.com/roelfdiedericks/pagesmith/internal/http"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
	"github.com/roelfdiedericks/pagesmith/internal/paths"
	"github.com/roelfdiedericks/pagesmith/internal/skills"
	"github.com/roelfdiedericks/pagesmith/internal/tui"
)

type generateCmd struct {
	Prompt string `arg:"" optional:"" help:"What the page should be."`

	Model     string   `short:"m" help:"Model id, overriding the backend default."`
	Backend   string   `short:"b" help:"Configured backend to use."`
	Provider  string   `help:"Routing provider hint."`
	Providers []string `help:"Ordered provider candidates."`
	Skill     string   `short:"s" help:"Design skill to apply."`
	FromURL   string   `name:"from-url" help:"Import page content from a URL as the brief."`
	BaseHTML  string   `name:"base-html" type:"existingfile" help:"HTML file to remix."`
	Image     string   `type:"existingfile" help:"Reference image file."`
	Out       string   `short:"o" help:"Output file (default stdout)."`
	Plain     bool     `help:"Disable the progress display."`
	NoHistory bool     `name:"no-history" help:"Skip recording this generation."`
}

func (c *generateCmd) Run(app *appContext) error {
	req := &pshttp.GenerateRequest{
		Model:      c.Model,
		Backend:    c.Backend,
		Provider:   c.Provider,
		Providers:  c.Providers,
		Prompt:     c.Prompt,
		Skill:      c.Skill,
		ContentURL: c.FromURL,
		Stream:     true,
	}

	if req.Model == "" {
		req.Model = app.cfg.Generation.DefaultModel
	}
	if req.Model == "" {
		if alias, bcfg, err := pickBackend(app, c.Backend); err == nil && bcfg.Model != "" {
			req.Model = bcfg.Model
			if req.Backend == "" {
				req.Backend = alias
			}
		}
	}
	if req.Model == "" {
		return fmt.Errorf("no model specified; pass --model or run pagesmith setup")
	}

	if c.BaseHTML != "" {
		data, err := os.ReadFile(c.BaseHTML)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", c.BaseHTML, err)
		}
		req.BaseHTML = string(data)
	}
	if c.Image != "" {
		data, err := os.ReadFile(c.Image)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", c.Image, err)
		}
		req.ImageData = base64.StdEncoding.EncodeToString(data)
	}

	var store *history.Store
	if app.cfg.History.HistoryEnabled() && !c.NoHistory {
		dbPath, err := paths.HistoryDBPath()
		if err != nil {
			return err
		}
		store, err = history.Open(dbPath)
		if err != nil {
			L_warn("history unavailable, continuing without it", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	loader, err := openSkills(app)
	if err != nil {
		return err
	}

	svc := pshttp.NewService(app.cfg, store, loader)

	interactive := !c.Plain && stderrIsTTY()
	result, err := tui.Run(func(cb *engine.Callbacks) (*engine.Result, error) {
		return svc.Generate(context.Background(), req, cb)
	}, interactive)
	if err != nil {
		return err
	}

	if c.Out == "" {
		fmt.Println(result.HTML)
		return nil
	}
	if err := os.WriteFile(c.Out, []byte(result.HTML), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", c.Out)
	return nil
}

func stderrIsTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// pickBackend resolves which configured backend a command will use.
func pickBackend(app *appContext, alias string) (string, *pshttp.ModelInfo, error) {
	if alias == "" {
		alias = app.cfg.Generation.DefaultBackend
	}
	if alias == "" && len(app.cfg.Backends) == 1 {
		for name := range app.cfg.Backends {
			alias = name
		}
	}
	if alias == "" {
		return "", nil, fmt.Errorf("no backend configured")
	}
	bcfg, ok := app.cfg.Backends[alias]
	if !ok {
		return "", nil, fmt.Errorf("unknown backend %q", alias)
	}
	return alias, &pshttp.ModelInfo{Backend: alias, Driver: bcfg.Driver, Model: bcfg.Model}, nil
}

// openSkills builds the skills loader over the managed dir and any
// configured extra dirs.
func openSkills(app *appContext) (*skills.Loader, error) {
	managed, err := paths.SkillsDir()
	if err != nil {
		return nil, err
	}

	workspace := ""
	if len(app.cfg.Skills.ExtraDirs) > 0 {
		workspace = app.cfg.Skills.ExtraDirs[0]
		if len(app.cfg.Skills.ExtraDirs) > 1 {
			L_warn("skills: only the first extra dir is scanned",
				"used", workspace, "ignored", strings.Join(app.cfg.Skills.ExtraDirs[1:], ", "))
		}
	}

	loader := skills.NewLoader(managed, workspace)
	if err := loader.Reload(); err != nil {
		return nil, err
	}
	return loader, nil
}
