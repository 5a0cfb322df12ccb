package services

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/goals"
)

// Classification is the outcome of matching one free-text answer against the
// pattern catalog.
type Classification struct {
	Code     string
	Strategy string
	IsNG     bool
	Eval     types.Evaluation
}

// Classifier matches answers against the goal-setting pattern catalog by
// keyword containment. Cancel keywords are checked before everything else so
// a user can bail out from any step.
type Classifier struct {
	ordered []catalogEntry
	cancel  []string
}

type catalogEntry struct {
	code     string
	strategy string
	isNG     bool
	keywords []string
}

// NewClassifier builds a classifier over the catalog. Patterns are matched in
// ascending priority order.
func NewClassifier(patterns []*types.GoalSettingPattern) *Classifier {
	c := &Classifier{}
	sorted := make([]*types.GoalSettingPattern, 0, len(patterns))
	for _, p := range patterns {
		if p != nil {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	for _, p := range sorted {
		e := catalogEntry{
			code:     p.Code,
			strategy: p.Strategy,
			isNG:     p.IsNG,
			keywords: decodeKeywords(p.Keywords),
		}
		if p.Code == goals.PatternExit {
			c.cancel = e.keywords
		}
		c.ordered = append(c.ordered, e)
	}
	return c
}

// Classify never errors: ambiguity routes to the unknown pattern, which the
// dialogue engine treats as a retry.
func (c *Classifier) Classify(text string) Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return c.result(goals.PatternUnknown, types.Evaluation{Issues: []string{"empty_answer"}})
	}

	if c.IsCancel(trimmed) {
		return c.result(goals.PatternExit, types.Evaluation{Recommendation: "accept_cancel"})
	}

	for _, e := range c.ordered {
		if !e.isNG {
			continue
		}
		if containsAny(trimmed, e.keywords) {
			eval := evaluate(trimmed)
			eval.Issues = append(eval.Issues, e.code)
			eval.Recommendation = e.strategy
			return Classification{Code: e.code, Strategy: e.strategy, IsNG: true, Eval: eval}
		}
	}

	eval := evaluate(trimmed)
	if eval.Specificity >= 0.5 {
		eval.Recommendation = goals.StrategyProceed
		return c.result(goals.PatternOK, eval)
	}
	eval.Issues = append(eval.Issues, "too_vague")
	return c.result(goals.PatternUnknown, eval)
}

// IsCancel reports whether the text is an explicit cancel request. Checked
// with priority over the per-step catalog.
func (c *Classifier) IsCancel(text string) bool {
	return containsAny(strings.TrimSpace(text), c.cancel)
}

func (c *Classifier) result(code string, eval types.Evaluation) Classification {
	for _, e := range c.ordered {
		if e.code == code {
			if eval.Recommendation == "" {
				eval.Recommendation = e.strategy
			}
			return Classification{Code: code, Strategy: e.strategy, IsNG: e.isNG, Eval: eval}
		}
	}
	// Catalog rows can lag behind code constants; fall back to clarification.
	if eval.Recommendation == "" {
		eval.Recommendation = goals.StrategyClarify
	}
	return Classification{Code: code, Strategy: goals.StrategyClarify, Eval: eval}
}

// evaluate derives the structured answer assessment stored on each turn log.
// Purely lexical: counts of concrete markers (numbers, dates, quantities),
// intent verbs and work vocabulary.
func evaluate(text string) types.Evaluation {
	length := utf8.RuneCountInString(text)

	specificity := 0.0
	switch {
	case length >= 30:
		specificity += 0.5
	case length >= 10:
		specificity += 0.35
	default:
		specificity += 0.1
	}
	if containsDigit(text) {
		specificity += 0.3
	}
	if containsAny(text, quantityMarkers) {
		specificity += 0.2
	}
	if specificity > 1 {
		specificity = 1
	}

	direction := 0.4
	if containsAny(text, intentMarkers) {
		direction = 0.8
	}

	connection := 0.4
	if containsAny(text, workMarkers) {
		connection = 0.8
	}

	return types.Evaluation{
		Specificity: round2(specificity),
		Direction:   round2(direction),
		Connection:  round2(connection),
	}
}

var (
	quantityMarkers = []string{"件", "人", "円", "%", "％", "回", "倍", "まで", "月", "日", "週", "年"}
	intentMarkers   = []string{"したい", "します", "する", "なりたい", "達成", "目指", "やる"}
	workMarkers     = []string{"仕事", "業務", "会社", "チーム", "売上", "顧客", "お客", "プロジェクト", "営業"}
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func containsDigit(text string) bool {
	for _, r := range text {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func decodeKeywords(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
