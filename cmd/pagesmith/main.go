package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/pagesmith/internal/config"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cli struct {
	Verbose bool `short:"v" help:"Enable debug logging."`
	Trace   bool `help:"Enable trace logging."`

	Generate generateCmd `cmd:"" help:"Generate a web page from a prompt."`
	Serve    serveCmd    `cmd:"" help:"Run the HTTP API server."`
	History  historyCmd  `cmd:"" help:"Inspect and manage past generations."`
	Skills   skillsCmd   `cmd:"" help:"List and inspect design skills."`
	Preview  previewCmd  `cmd:"" help:"Screenshot a generated page in headless Chrome."`
	Setup    setupCmd    `cmd:"" help:"Interactive configuration wizard."`
	Version  versionCmd  `cmd:"" help:"Print version information."`
}

// appContext carries the loaded config to every subcommand.
type appContext struct {
	cfg *config.Config
}

type versionCmd struct{}

func (c *versionCmd) Run(*appContext) error {
	fmt.Printf("pagesmith %s (commit %s, built %s)\n", version, commit, date)
	return nil
}

func main() {
	var root cli
	ctx := kong.Parse(&root,
		kong.Name("pagesmith"),
		kong.Description("Generate self-contained HTML pages with LLM backends."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		ctx.FatalIfErrorf(err)
	}

	level := ParseLevel(cfg.Logging.Level)
	if root.Verbose {
		level = LevelDebug
	}
	if root.Trace {
		level = LevelTrace
	}
	Init(&Config{Level: level, TimeFormat: "15:04:05"})

	ctx.FatalIfErrorf(ctx.Run(&appContext{cfg: cfg}))
}
