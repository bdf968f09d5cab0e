// Package prompt assembles the system and user messages for a generation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/roelfdiedericks/pagesmith/internal/skills"
	"github.com/roelfdiedericks/pagesmith/internal/tokens"
)

// systemPrompt is the fixed design brief every generation starts from.
const systemPrompt = `You are an expert web designer and front-end developer.

Produce exactly one complete, self-contained HTML document.

Rules:
- Output a single HTML file: all CSS in a <style> block, all JavaScript in a
  <script> block. No external stylesheets, scripts, fonts or images.
- Start with <!doctype html> and end with </html>.
- The page must be responsive and look polished on both mobile and desktop.
- Use semantic HTML and ensure text contrast meets WCAG AA.
- Invent tasteful, realistic content where the request leaves gaps. Never use
  lorem ipsum.
- Do not explain your work. Output only the HTML document.`

// defaultContextBudget is the assumed input context when the caller does not
// know the model's real window. Large remix payloads are the usual offender.
const defaultContextBudget = 100_000

// Options configures one prompt build.
type Options struct {
	// Description is the user's request for the page.
	Description string
	// Skill optionally appends a style pack to the system prompt.
	Skill *skills.Skill
	// BaseHTML optionally carries an existing document to redesign.
	BaseHTML string
	// Brief optionally carries imported source content to build from.
	Brief string
	// HasImage notes that a reference image rides along with the request.
	HasImage bool
	// ContextBudget overrides the assumed input window, 0 = default.
	ContextBudget int
}

// Built is the assembled prompt pair plus any budget warnings.
type Built struct {
	System string
	User   string
	// InputTokens is the estimated token count of System plus User,
	// before the safety margin.
	InputTokens int
	Warnings    []string
}

// Build assembles the system and user messages.
func Build(opts Options) Built {
	var system strings.Builder
	system.WriteString(systemPrompt)

	if opts.Skill != nil && opts.Skill.Body != "" {
		system.WriteString("\n\n## Style direction\n\n")
		system.WriteString(opts.Skill.Body)
	}

	var user strings.Builder
	desc := strings.TrimSpace(opts.Description)
	if desc == "" {
		desc = "Design an impressive landing page that shows off your range."
	}
	user.WriteString(desc)

	if opts.Brief != "" {
		user.WriteString("\n\nBuild the page from this source content:\n\n")
		user.WriteString(opts.Brief)
	}

	if opts.BaseHTML != "" {
		user.WriteString("\n\nRedesign the following existing page. Keep its content and intent, replace its design:\n\n```html\n")
		user.WriteString(opts.BaseHTML)
		user.WriteString("\n```")
	}

	if opts.HasImage {
		user.WriteString("\n\nA reference image is attached. Match its layout, palette and overall feel.")
	}

	b := Built{System: system.String(), User: user.String()}
	b.InputTokens = tokens.Estimate(b.System) + tokens.Estimate(b.User)
	b.Warnings = budgetWarnings(b, opts)
	return b
}

// budgetWarnings estimates the prompt's token footprint and flags inputs
// likely to overflow the model's context.
func budgetWarnings(b Built, opts Options) []string {
	budget := opts.ContextBudget
	if budget <= 0 {
		budget = defaultContextBudget
	}

	padded := int(float64(b.InputTokens) * tokens.SafetyMargin)
	if padded <= budget {
		return nil
	}

	var warnings []string
	warnings = append(warnings, fmt.Sprintf(
		"prompt is ~%d tokens, over the assumed %d-token context", padded, budget))
	if opts.BaseHTML != "" {
		warnings = append(warnings, "the remix baseline HTML dominates the prompt, consider trimming it")
	}
	if opts.Brief != "" {
		warnings = append(warnings, "the imported content brief is large, consider a shorter source")
	}
	return warnings
}
