package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sibyllinesoft/valknut-go/internal/result"
	"github.com/sibyllinesoft/valknut-go/internal/vkconfig"
)

// actionTemplates maps each gate rule to its recommended-action list;
// a template's formatting verbs are filled from the violation's current
// value and threshold (in that order) so CI output reads as a concrete
// instruction, not a slogan. Templates without verbs are used verbatim.
var actionTemplates = map[string][]string{
	"Complexity Threshold": {
		"Average complexity is %.1f against a budget of %.1f; refactor the most complex functions first.",
		"Break deeply nested branches into guard clauses or extracted helpers.",
	},
	"Technical Debt Ratio": {
		"Technical debt ratio %.1f exceeds %.1f; schedule debt paydown for the affected files.",
	},
	"Maintainability Floor": {
		"Average maintainability %.1f is below the minimum %.1f; shorten and document the worst-scoring functions.",
	},
	"Critical Issues": {
		"%.0f critical issues exceed the configured maximum of %.0f; resolve them before merging.",
	},
	"High Priority Issues": {
		"%.0f high-priority issues exceed the configured maximum of %.0f; burn the list down below the gate.",
	},
}

// EvaluateGates checks every configured quality-gate rule against the
// aggregated results and returns the pass/fail record with one violation
// per breached rule.
func EvaluateGates(cfg vkconfig.QualityGateConfig, res *result.AnalysisResults, analyses []*fileAnalysis) *result.QualityGateResult {
	gate := &result.QualityGateResult{Passed: true, OverallScore: res.Summary.CodeHealthScore}

	avgComplexity, avgDebt, avgMaintainability, complexFiles := complexityAggregates(analyses, cfg.MaxComplexityScore)

	addViolation := func(rule, description string, current, threshold float64, affected []string, inverted bool) {
		breach := current > threshold
		if inverted {
			breach = current < threshold
		}
		if !breach {
			return
		}
		v := result.QualityGateViolation{
			RuleName:      rule,
			Description:   description,
			CurrentValue:  current,
			Threshold:     threshold,
			Severity:      gateSeverity(current, threshold, inverted),
			AffectedFiles: affected,
		}
		for _, tmpl := range actionTemplates[rule] {
			action := tmpl
			if strings.Contains(tmpl, "%") {
				action = fmt.Sprintf(tmpl, current, threshold)
			}
			v.RecommendedActions = append(v.RecommendedActions, action)
		}
		gate.Violations = append(gate.Violations, v)
		gate.Passed = false
	}

	if len(analyses) > 0 {
		addViolation("Complexity Threshold",
			"average cyclomatic complexity across analyzed functions",
			avgComplexity, cfg.MaxComplexityScore, complexFiles, false)
		addViolation("Technical Debt Ratio",
			"average technical debt score across analyzed functions",
			avgDebt, cfg.MaxTechnicalDebtRatio, nil, false)
		addViolation("Maintainability Floor",
			"average maintainability index across analyzed functions",
			avgMaintainability, cfg.MinMaintainabilityScore, nil, true)
	}
	addViolation("Critical Issues",
		"entities scored at Critical priority",
		float64(res.Summary.CriticalCount), float64(cfg.MaxCriticalIssues), nil, false)
	addViolation("High Priority Issues",
		"entities scored at High priority",
		float64(res.Summary.HighPriorityCount), float64(cfg.MaxHighPriorityIssues), nil, false)

	return gate
}

// complexityAggregates averages the complexity detector's outputs across
// every analyzed function and lists the files containing a function that
// individually exceeds the complexity budget.
func complexityAggregates(analyses []*fileAnalysis, maxComplexity float64) (avgComplexity, avgDebt, avgMaintainability float64, affected []string) {
	var n int
	files := make(map[string]bool)
	for _, fa := range analyses {
		for _, m := range fa.metrics {
			n++
			avgComplexity += float64(m.Cyclomatic)
			avgDebt += m.TechnicalDebtScore
			avgMaintainability += m.MaintainabilityIndex
			if float64(m.Cyclomatic) > maxComplexity {
				files[fa.file.Rel] = true
			}
		}
	}
	if n == 0 {
		return 0, 0, 100, nil
	}
	avgComplexity /= float64(n)
	avgDebt /= float64(n)
	avgMaintainability /= float64(n)

	for f := range files {
		affected = append(affected, f)
	}
	sort.Strings(affected)
	return avgComplexity, avgDebt, avgMaintainability, affected
}

// gateSeverity buckets how badly a rule is breached. Inverted rules
// (minimums) measure shortfall instead of overshoot.
func gateSeverity(current, threshold float64, inverted bool) string {
	ratio := 1.0
	switch {
	case inverted && current > 0:
		ratio = threshold / current
	case !inverted && threshold > 0:
		ratio = current / threshold
	case !inverted && threshold == 0:
		ratio = current + 1 // any breach of a zero-tolerance gate is severe
	}
	switch {
	case ratio >= 3:
		return "Blocker"
	case ratio >= 2:
		return "Critical"
	case ratio >= 1.5:
		return "High"
	default:
		return "Warning"
	}
}
