package services

import (
	"testing"

	"gorm.io/datatypes"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/goals"
)

func testCatalog() []*types.GoalSettingPattern {
	return []*types.GoalSettingPattern{
		{Code: goals.PatternOK, Strategy: goals.StrategyProceed, Priority: 900},
		{Code: goals.PatternUnknown, Strategy: goals.StrategyClarify, Priority: 990},
		{Code: goals.PatternExit, Strategy: goals.StrategyAccept, Priority: 10,
			Keywords: datatypes.JSON([]byte(`["やめる","キャンセル","中止"]`))},
		{Code: goals.PatternNGAbstract, Strategy: goals.StrategyAskSpecificity, IsNG: true, Priority: 90,
			Keywords: datatypes.JSON([]byte(`["成長","頑張る","もっと"]`))},
		{Code: goals.PatternNGCareer, Strategy: goals.StrategyRedirectToCompany, IsNG: true, Priority: 30,
			Keywords: datatypes.JSON([]byte(`["転職","辞めたい"]`))},
		{Code: goals.PatternNGMental, Strategy: goals.StrategySuggestHuman, IsNG: true, Priority: 20,
			Keywords: datatypes.JSON([]byte(`["つらい","疲れた"]`))},
	}
}

func TestClassifyAbstractAnswer(t *testing.T) {
	c := NewClassifier(testCatalog())

	got := c.Classify("成長したい")
	if got.Code != goals.PatternNGAbstract {
		t.Fatalf("expected %s, got %s", goals.PatternNGAbstract, got.Code)
	}
	if got.Strategy != goals.StrategyAskSpecificity {
		t.Fatalf("expected strategy %s, got %s", goals.StrategyAskSpecificity, got.Strategy)
	}
	if !got.IsNG {
		t.Fatalf("expected NG classification")
	}
}

func TestClassifyCancelWinsOverCatalog(t *testing.T) {
	c := NewClassifier(testCatalog())

	// Contains an NG keyword too, but cancel is checked first.
	got := c.Classify("成長とかもういいです、やめる")
	if got.Code != goals.PatternExit {
		t.Fatalf("expected %s, got %s", goals.PatternExit, got.Code)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	c := NewClassifier(testCatalog())

	// Matches both mental (priority 20) and career (priority 30); lower
	// priority wins.
	got := c.Classify("疲れたので転職したい")
	if got.Code != goals.PatternNGMental {
		t.Fatalf("expected %s, got %s", goals.PatternNGMental, got.Code)
	}
}

func TestClassifySpecificAnswerIsOK(t *testing.T) {
	c := NewClassifier(testCatalog())

	got := c.Classify("今月中に新規顧客を5件獲得して、チームの売上目標を達成します")
	if got.Code != goals.PatternOK {
		t.Fatalf("expected %s, got %s (eval %+v)", goals.PatternOK, got.Code, got.Eval)
	}
	if got.Eval.Specificity < 0.5 {
		t.Fatalf("expected specificity >= 0.5, got %f", got.Eval.Specificity)
	}
}

func TestClassifyEmptyAndVagueAreUnknown(t *testing.T) {
	c := NewClassifier(testCatalog())

	if got := c.Classify("   "); got.Code != goals.PatternUnknown {
		t.Fatalf("empty answer: expected %s, got %s", goals.PatternUnknown, got.Code)
	}
	if got := c.Classify("はい"); got.Code != goals.PatternUnknown {
		t.Fatalf("vague answer: expected %s, got %s", goals.PatternUnknown, got.Code)
	}
}

func TestClassifyNeverErrors(t *testing.T) {
	// Empty catalog still yields a usable result.
	c := NewClassifier(nil)
	got := c.Classify("なにか")
	if got.Code == "" || got.Strategy == "" {
		t.Fatalf("expected non-empty classification, got %+v", got)
	}
}
