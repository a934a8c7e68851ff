package ignore

import (
	"strings"
)

// RuleSet groups the rules read from one source. Base is the forward-slash
// directory, relative to the document root, that the rules are evaluated
// against; the empty string denotes the document root itself.
type RuleSet struct {
	Base        string
	Source      string
	Rules       []Rule
	BinaryRules []Rule
}

// IsEmpty reports whether the set carries no rules at all.
func (ruleSet RuleSet) IsEmpty() bool {
	return len(ruleSet.Rules) == 0 && len(ruleSet.BinaryRules) == 0
}

// relativeTo returns path relative to the set's base and whether path lies strictly below it.
func (ruleSet RuleSet) relativeTo(path string) (string, bool) {
	if ruleSet.Base == "" {
		return path, path != ""
	}
	prefix := ruleSet.Base + pathSeparator
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return "", false
	}
	return path[len(prefix):], true
}

// Decision describes the outcome of evaluating a path against a Matcher.
type Decision struct {
	Ignored bool
	// Rule is the last rule that matched, nil when none did.
	Rule *Rule
	// Ancestor is set when an enclosing directory is ignored.
	Ancestor string
}

// Matcher evaluates paths against an ordered stack of rule sets, outermost first.
// A Matcher is immutable; Push returns a new Matcher sharing no mutable state.
type Matcher struct {
	ruleSets []RuleSet
}

// NewMatcher constructs a Matcher from rule sets ordered outermost first.
func NewMatcher(ruleSets ...RuleSet) *Matcher {
	return (&Matcher{}).Push(ruleSets...)
}

// Push returns a Matcher with ruleSets appended to the innermost end of the stack.
// Empty sets are dropped.
func (matcher *Matcher) Push(ruleSets ...RuleSet) *Matcher {
	combined := make([]RuleSet, 0, len(matcher.ruleSets)+len(ruleSets))
	combined = append(combined, matcher.ruleSets...)
	for _, ruleSet := range ruleSets {
		if ruleSet.IsEmpty() {
			continue
		}
		combined = append(combined, ruleSet)
	}
	return &Matcher{ruleSets: combined}
}

// RuleSets returns a copy of the stacked rule sets, outermost first.
func (matcher *Matcher) RuleSets() []RuleSet {
	return append([]RuleSet(nil), matcher.ruleSets...)
}

// Decide evaluates path, a forward-slash path relative to the document root.
// Every enclosing directory is evaluated first; once one is ignored, path is
// ignored regardless of later negations.
func (matcher *Matcher) Decide(path string, isDirectory bool) Decision {
	segments := strings.Split(path, pathSeparator)
	for segmentCount := 1; segmentCount < len(segments); segmentCount++ {
		ancestor := strings.Join(segments[:segmentCount], pathSeparator)
		if ancestorDecision := matcher.DecideEntry(ancestor, true); ancestorDecision.Ignored {
			ancestorDecision.Ancestor = ancestor
			return ancestorDecision
		}
	}
	return matcher.DecideEntry(path, isDirectory)
}

// DecideEntry evaluates path without consulting its ancestors. Traversals that
// never descend into ignored directories use it to avoid re-evaluating parents.
func (matcher *Matcher) DecideEntry(path string, isDirectory bool) Decision {
	var lastMatch *Rule
	for ruleSetIndex := range matcher.ruleSets {
		ruleSet := &matcher.ruleSets[ruleSetIndex]
		relativePath, applies := ruleSet.relativeTo(path)
		if !applies {
			continue
		}
		for ruleIndex := range ruleSet.Rules {
			if ruleSet.Rules[ruleIndex].Matches(relativePath, isDirectory) {
				lastMatch = &ruleSet.Rules[ruleIndex]
			}
		}
	}
	return Decision{Ignored: lastMatch != nil && !lastMatch.Negate, Rule: lastMatch}
}

// IsIgnored reports whether path is excluded, including by an ignored ancestor.
func (matcher *Matcher) IsIgnored(path string, isDirectory bool) bool {
	return matcher.Decide(path, isDirectory).Ignored
}

// IsForcedBinary reports whether a [binary] section rule selects the file at path.
func (matcher *Matcher) IsForcedBinary(path string) bool {
	forced := false
	for _, ruleSet := range matcher.ruleSets {
		relativePath, applies := ruleSet.relativeTo(path)
		if !applies {
			continue
		}
		for _, rule := range ruleSet.BinaryRules {
			if rule.Matches(relativePath, false) {
				forced = !rule.Negate
			}
		}
	}
	return forced
}
