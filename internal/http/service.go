package http

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/roelfdiedericks/pagesmith/internal/config"
	"github.com/roelfdiedericks/pagesmith/internal/engine"
	"github.com/roelfdiedericks/pagesmith/internal/history"
	"github.com/roelfdiedericks/pagesmith/internal/llm"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
	"github.com/roelfdiedericks/pagesmith/internal/media"
	"github.com/roelfdiedericks/pagesmith/internal/prompt"
	"github.com/roelfdiedericks/pagesmith/internal/skills"
	"github.com/roelfdiedericks/pagesmith/internal/tokens"
	"github.com/roelfdiedericks/pagesmith/internal/webimport"
)

// outputTokenBuffer is headroom reserved inside the context window for
// message framing when capping the output budget.
const outputTokenBuffer = 1024

// BadRequestError marks failures caused by the request itself rather
// than by a backend.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func badRequestf(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// Service wires config, skills, history and the engine into one
// generation pipeline shared by every API request.
type Service struct {
	cfg     *config.Config
	history *history.Store // nil = history disabled
	skills  *skills.Loader
}

// NewService builds the pipeline. hist may be nil.
func NewService(cfg *config.Config, hist *history.Store, loader *skills.Loader) *Service {
	return &Service{cfg: cfg, history: hist, skills: loader}
}

// Generate resolves the request into a backend call and runs the
// attempt loop, recording the outcome in history.
func (svc *Service) Generate(ctx context.Context, req *GenerateRequest, cb *engine.Callbacks) (*engine.Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	alias, bcfg, err := svc.resolveBackend(req.Backend)
	if err != nil {
		return nil, err
	}

	backend, err := llm.New(alias, *bcfg)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", alias, err)
	}

	var skill *skills.Skill
	if req.Skill != "" {
		if svc.skills == nil {
			return nil, badRequestf("skills are not configured")
		}
		skill = svc.skills.Get(req.Skill)
		if skill == nil {
			return nil, badRequestf("unknown skill %q", req.Skill)
		}
	}

	brief := ""
	if req.ContentURL != "" {
		article, err := webimport.New().Import(ctx, req.ContentURL)
		if err != nil {
			return nil, badRequestf("content import failed: %v", err)
		}
		brief = article.Brief()
	}

	image, err := svc.resolveImage(ctx, req)
	if err != nil {
		return nil, err
	}

	built := prompt.Build(prompt.Options{
		Description:   req.Prompt,
		Skill:         skill,
		BaseHTML:      req.BaseHTML,
		Brief:         brief,
		HasImage:      image != nil,
		ContextBudget: bcfg.ContextWindow,
	})
	for _, warning := range built.Warnings {
		L_warn("generate: %s", warning)
		if cb != nil && cb.OnLog != nil {
			cb.OnLog(warning)
		}
	}

	var ref *llm.ReferenceImage
	if image != nil {
		ref = image.Reference()
	}

	maxTokens := tokens.CapMaxTokens(
		svc.cfg.Generation.ResolveMaxOutputTokens(bcfg),
		bcfg.ContextWindow,
		built.InputTokens,
		outputTokenBuffer,
	)

	orch := engine.New(backend, svc.cfg.Generation.TimeoutBudget())
	start := time.Now()
	result, err := orch.Generate(ctx, engine.Request{
		Model:              req.Model,
		ProviderHint:       req.Provider,
		ProviderCandidates: req.Providers,
		System:             built.System,
		Prompt:             built.User,
		Image:              ref,
		MaxTokens:          maxTokens,
		Stream:             req.Stream,
	}, cb)

	svc.record(req, result, err, time.Since(start))
	return result, err
}

func (svc *Service) resolveBackend(alias string) (string, *llm.BackendConfig, error) {
	if alias == "" {
		alias = svc.cfg.Generation.DefaultBackend
	}
	if alias == "" && len(svc.cfg.Backends) == 1 {
		for name := range svc.cfg.Backends {
			alias = name
		}
	}
	if alias == "" {
		return "", nil, badRequestf("no backend specified and no default configured")
	}

	bcfg, ok := svc.cfg.Backends[alias]
	if !ok {
		return "", nil, badRequestf("unknown backend %q", alias)
	}
	return alias, &bcfg, nil
}

func (svc *Service) resolveImage(ctx context.Context, req *GenerateRequest) (*media.ImageData, error) {
	switch {
	case req.ImageData != "":
		if strings.HasPrefix(req.ImageData, "data:") {
			img, err := media.FromDataURL(req.ImageData)
			if err != nil {
				return nil, badRequestf("invalid image data: %v", err)
			}
			return img, nil
		}
		raw, err := base64.StdEncoding.DecodeString(req.ImageData)
		if err != nil {
			return nil, badRequestf("invalid image data: %v", err)
		}
		img, err := media.Prepare("", raw)
		if err != nil {
			return nil, badRequestf("invalid image data: %v", err)
		}
		return img, nil

	case strings.HasPrefix(req.ImageURL, "data:"):
		img, err := media.FromDataURL(req.ImageURL)
		if err != nil {
			return nil, badRequestf("invalid image URL: %v", err)
		}
		return img, nil

	case req.ImageURL != "":
		raw, err := fetchImage(ctx, req.ImageURL)
		if err != nil {
			return nil, badRequestf("failed to fetch image: %v", err)
		}
		img, err := media.Prepare("", raw)
		if err != nil {
			return nil, badRequestf("invalid image at %s: %v", req.ImageURL, err)
		}
		return img, nil
	}
	return nil, nil
}

const maxImageDownload = 50 * 1024 * 1024

func fetchImage(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &nethttp.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageDownload))
}

func (svc *Service) record(req *GenerateRequest, result *engine.Result, genErr error, elapsed time.Duration) {
	if svc.history == nil {
		return
	}

	rec := &history.Record{
		Model:      req.Model,
		DurationMs: elapsed.Milliseconds(),
		Prompt:     summarize(req.Prompt),
	}
	if result != nil {
		rec.Status = "success"
		rec.Provider = result.UsedProvider
		rec.Attempts = result.Attempts
		rec.Usage = result.Usage
		rec.Cost = result.Cost
		rec.HTML = result.HTML
	} else {
		rec.Status = "error"
		if ge, ok := genErr.(*engine.GenerationError); ok {
			rec.Attempts = ge.Attempts
		}
	}

	if _, err := svc.history.Save(rec); err != nil {
		L_error("generate: failed to record history", "error", err)
	}
}

const promptSummaryLen = 500

func summarize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= promptSummaryLen {
		return s
	}
	return s[:promptSummaryLen] + "..."
}
