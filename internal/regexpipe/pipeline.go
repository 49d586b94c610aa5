// Package regexpipe applies an ordered sequence of compiled regular-
// expression substitutions to a string, in the pre/post, account/preset
// scoping order the request-execution pipeline requires.
package regexpipe

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/foamcold/gproxy/internal/model"
)

// CompiledRule is a RegexRule whose pattern has been compiled.
type CompiledRule struct {
	model.RegexRule
	re *regexp.Regexp
}

// Compile compiles every rule's pattern. A pattern that fails to compile
// is reported in errs (keyed to the offending rule) and excluded from
// the returned slice. The orchestrator calls Compile on every request,
// logs each reported error, and builds the pipeline from the rest.
func Compile(rules []model.RegexRule) ([]CompiledRule, []error) {
	out := make([]CompiledRule, 0, len(rules))
	var errs []error
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("regexpipe: rule %q: %w", r.Name, err))
			continue
		}
		out = append(out, CompiledRule{RegexRule: r, re: re})
	}
	return out, errs
}

// Pipeline holds the four (phase x scope) rule groups for one request:
// account-level and preset-level rules, each for pre and post phase,
// pre-sorted by sort-order ascending.
type Pipeline struct {
	accountPre  []CompiledRule
	accountPost []CompiledRule
	presetPre   []CompiledRule
	presetPost  []CompiledRule
}

// New builds a Pipeline from already-compiled account-level and
// preset-level rules. Only enabled rules participate.
func New(accountRules, presetRules []CompiledRule) *Pipeline {
	p := &Pipeline{}
	for _, r := range accountRules {
		if !r.Enabled {
			continue
		}
		if r.Phase == model.PhasePre {
			p.accountPre = append(p.accountPre, r)
		} else {
			p.accountPost = append(p.accountPost, r)
		}
	}
	for _, r := range presetRules {
		if !r.Enabled {
			continue
		}
		if r.Phase == model.PhasePre {
			p.presetPre = append(p.presetPre, r)
		} else {
			p.presetPost = append(p.presetPost, r)
		}
	}
	sortBySortOrder(p.accountPre)
	sortBySortOrder(p.accountPost)
	sortBySortOrder(p.presetPre)
	sortBySortOrder(p.presetPost)
	return p
}

func sortBySortOrder(rules []CompiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].SortOrder < rules[j].SortOrder
	})
}

// ApplyPre rewrites s with the pre-phase pipeline: account-level rules
// run first, then preset-level rules.
func (p *Pipeline) ApplyPre(s string) string {
	s = applyAll(p.accountPre, s)
	s = applyAll(p.presetPre, s)
	return s
}

// ApplyPost rewrites s with the post-phase pipeline: account-level rules
// run first, then preset-level rules. Safe to call on an arbitrary
// streaming delta slice — each rule operates on whatever text it is
// given, with no cross-call state.
func (p *Pipeline) ApplyPost(s string) string {
	s = applyAll(p.accountPost, s)
	s = applyAll(p.presetPost, s)
	return s
}

func applyAll(rules []CompiledRule, s string) string {
	for _, r := range rules {
		s = applyOne(r, s)
	}
	return s
}

// applyOne performs one global substitution. Go's RE2-based regexp
// engine has no catastrophic-backtracking failure mode, so the runtime
// budget concern a backtracking engine would need is structurally
// satisfied; a rule is still skipped (not applied) and a warning logged
// if it panics for any other reason, so one bad rule never aborts the
// pipeline.
func applyOne(r CompiledRule, s string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("regexpipe: rule panicked, skipping",
				slog.String("rule", r.Name), slog.Any("panic", rec))
			result = s
		}
	}()
	return r.re.ReplaceAllString(s, r.Replacement)
}
