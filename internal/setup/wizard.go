// Package setup is the interactive first-run wizard.
package setup

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/roelfdiedericks/pagesmith/internal/auth"
	"github.com/roelfdiedericks/pagesmith/internal/config"
	"github.com/roelfdiedericks/pagesmith/internal/paths"
)

// Wizard collects configuration interactively and writes the config file.
type Wizard struct {
	cfg *config.Config

	servePort string
	wantAuth  bool
}

// NewWizard starts from the existing config so re-running preserves
// settings the user does not touch.
func NewWizard() (*Wizard, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Backends == nil {
		cfg.Backends = make(map[string]config.BackendConfig)
	}
	return &Wizard{cfg: cfg}, nil
}

// Run walks through backend, generation and serve configuration.
func (w *Wizard) Run() error {
	fmt.Println("pagesmith setup")
	fmt.Println()

	if err := w.configureBackends(); err != nil {
		return abortOK(err)
	}
	if err := w.chooseDefaults(); err != nil {
		return abortOK(err)
	}
	if err := w.configureServe(); err != nil {
		return abortOK(err)
	}

	if err := config.Save(w.cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	path, _ := paths.DefaultConfigPath()
	fmt.Printf("\n✓ Configuration saved to %s\n", path)
	return nil
}

// abortOK turns an escape at any form into a clean exit.
func abortOK(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Println("\nSetup aborted, nothing saved.")
		return nil
	}
	return err
}

func (w *Wizard) configureBackends() error {
	first := true
	for {
		if !first || len(w.cfg.Backends) > 0 {
			add := false
			prompt := "Add another backend?"
			if first {
				prompt = fmt.Sprintf("Keep %d configured backend(s) and add more?", len(w.cfg.Backends))
			}
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().Title(prompt).Value(&add),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !add {
				return nil
			}
		}
		first = false

		if err := w.addBackend(); err != nil {
			return err
		}
	}
}

func (w *Wizard) addBackend() error {
	var options []huh.Option[string]
	for _, p := range Presets {
		options = append(options, huh.NewOption(fmt.Sprintf("%s - %s", p.Name, p.Description), p.Key))
	}

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Which backend do you want to use?").
			Options(options...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return err
	}

	var preset Preset
	for _, p := range Presets {
		if p.Key == choice {
			preset = p
			break
		}
	}

	bcfg := config.BackendConfig{
		Driver: preset.Driver,
		Model:  preset.DefaultModel,
	}
	alias := preset.Key

	keyDescription := "Stored in the config file; leave empty to rely on the environment."
	if preset.EnvVar != "" {
		if os.Getenv(preset.EnvVar) != "" {
			keyDescription = fmt.Sprintf("%s is already set; leave empty to keep using it.", preset.EnvVar)
		} else {
			keyDescription = fmt.Sprintf("Or set %s in the environment and leave this empty.", preset.EnvVar)
		}
	}

	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewInput().
				Title("Backend name").
				Description("How this backend is referred to in config and on the command line").
				Value(&alias).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("API key").
				Description(keyDescription).
				EchoMode(huh.EchoModePassword).
				Value(&bcfg.APIKey),
			huh.NewInput().
				Title("Default model").
				Value(&bcfg.Model),
		),
	}
	if preset.NeedsBaseURL {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Description("OpenAI-compatible endpoint, e.g. http://localhost:11434/v1").
				Value(&bcfg.BaseURL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("base URL is required for a custom endpoint")
					}
					return nil
				}),
		))
	}

	if err := huh.NewForm(groups...).Run(); err != nil {
		return err
	}

	w.cfg.Backends[strings.TrimSpace(alias)] = bcfg
	fmt.Printf("✓ Backend %s configured\n", alias)
	return nil
}

func (w *Wizard) chooseDefaults() error {
	if len(w.cfg.Backends) == 0 {
		return fmt.Errorf("no backends configured")
	}
	if len(w.cfg.Backends) == 1 {
		for name := range w.cfg.Backends {
			w.cfg.Generation.DefaultBackend = name
		}
		return nil
	}

	var options []huh.Option[string]
	for name, bcfg := range w.cfg.Backends {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", name, bcfg.Driver), name))
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Default backend").
			Options(options...).
			Value(&w.cfg.Generation.DefaultBackend),
	))
	return form.Run()
}

func (w *Wizard) configureServe() error {
	w.servePort = "3380"
	if w.cfg.Serve.Listen != "" {
		if _, port, ok := strings.Cut(w.cfg.Serve.Listen, ":"); ok {
			w.servePort = port
		}
	}
	w.wantAuth = w.cfg.Serve.AuthTokenHash != ""

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("API server port").
			Description("Used by 'pagesmith serve'").
			Value(&w.servePort).
			Validate(func(s string) error {
				n, err := strconv.Atoi(s)
				if err != nil || n < 1 || n > 65535 {
					return fmt.Errorf("enter a port between 1 and 65535")
				}
				return nil
			}),
		huh.NewConfirm().
			Title("Require a bearer token for the API?").
			Value(&w.wantAuth),
	))
	if err := form.Run(); err != nil {
		return err
	}

	w.cfg.Serve.Listen = "127.0.0.1:" + w.servePort

	if w.wantAuth && w.cfg.Serve.AuthTokenHash == "" {
		token, digest, err := auth.NewToken()
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		w.cfg.Serve.AuthTokenHash = digest
		fmt.Println()
		fmt.Println("API token (store it now, it is not shown again):")
		fmt.Printf("  %s\n", token)
	}
	if !w.wantAuth {
		w.cfg.Serve.AuthTokenHash = ""
	}
	return nil
}
