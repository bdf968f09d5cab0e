// Package engine drives page generation: it plans the ordered provider
// attempts for a request and runs them against a shared wall-clock budget.
package engine

import (
	"strings"

	"github.com/roelfdiedericks/pagesmith/internal/llm"
)

// maxProviderCandidates caps an explicit candidate list. Anything past the
// cap is silently dropped before the trailing auto entry is added.
const maxProviderCandidates = 8

// PlanEntry is one fully-qualified routing target for an attempt.
type PlanEntry struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// Plan builds the ordered attempt list for one model request.
//
// The policy is "most specific first, auto last": explicit candidates in
// caller order, else the single hint, and in every case a trailing auto
// entry so the backend's own routing gets the final try. Candidates are
// case-folded, deduplicated and capped; "auto" among them is dropped since
// the trailing entry already covers it. Provider token validity is the
// caller's problem, enforced at the HTTP and CLI boundaries.
func Plan(model, providerHint string, providerCandidates []string) []PlanEntry {
	auto := PlanEntry{Model: model, Provider: llm.ProviderAuto}

	candidates := normalizeCandidates(providerCandidates)
	if len(candidates) > 0 {
		plan := make([]PlanEntry, 0, len(candidates)+1)
		for _, c := range candidates {
			plan = append(plan, PlanEntry{Model: model, Provider: c})
		}
		return append(plan, auto)
	}

	if hint := strings.ToLower(strings.TrimSpace(providerHint)); hint != "" && hint != llm.ProviderAuto {
		return []PlanEntry{{Model: model, Provider: hint}, auto}
	}

	return []PlanEntry{auto}
}

// normalizeCandidates case-folds, trims, deduplicates and caps the candidate
// list, dropping empties and "auto".
func normalizeCandidates(raw []string) []string {
	var out []string
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || c == llm.ProviderAuto || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == maxProviderCandidates {
			break
		}
	}
	return out
}
