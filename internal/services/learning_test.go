package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
	domlearning "github.com/soulkun/soulkun-backend/internal/domain/learning"
)

func newLearningService(t *testing.T) LearningService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	// No Redis in tests: dedup exercises the DB fallback path.
	return NewLearningService(db, log, LearningConfig{DedupWindow: 10 * time.Minute}, nil,
		repos.NewLearningRepo(db, log),
		repos.NewLearningApplicationLogRepo(db, log),
	)
}

func TestTeachSupersedesOverlappingLearning(t *testing.T) {
	svc := newLearningService(t)
	ctx := context.Background()
	orgID := uuid.New()

	first, err := svc.Teach(ctx, orgID, TeachInput{
		Category:     domlearning.CategoryAlias,
		TriggerValue: "麻美",
		Content:      datatypes.JSON([]byte(`{"to":"田中麻美"}`)),
		Authority:    domlearning.AuthorityUser,
	})
	if err != nil {
		t.Fatalf("first teach: %v", err)
	}

	second, err := svc.Teach(ctx, orgID, TeachInput{
		Category:     domlearning.CategoryAlias,
		TriggerValue: "麻美",
		Content:      datatypes.JSON([]byte(`{"to":"渡部麻美"}`)),
		Authority:    domlearning.AuthorityUser,
	})
	if err != nil {
		t.Fatalf("second teach: %v", err)
	}
	if second.SupersedesID == nil || *second.SupersedesID != first.ID {
		t.Fatalf("expected supersedes_id=%s, got %v", first.ID, second.SupersedesID)
	}
	if second.ContentVer != first.ContentVer+1 {
		t.Fatalf("expected content version bump, got %d", second.ContentVer)
	}

	// Exactly one active learning remains and it is the newer one.
	found, err := svc.FindApplicable(ctx, orgID, ApplicableQuery{Text: "麻美さんに送って"})
	if err != nil {
		t.Fatalf("find applicable: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 active learning, got %d", len(found))
	}
	if found[0].ID != second.ID {
		t.Fatalf("expected the newer learning, got %s", found[0].ID)
	}
	if found[0].SupersededByID != nil {
		t.Fatalf("active learning must not be superseded")
	}
}

func TestFindApplicableAuthorityOrdering(t *testing.T) {
	svc := newLearningService(t)
	ctx := context.Background()
	orgID := uuid.New()

	// Same trigger in non-overlapping scopes, so both stay active and the
	// query sees both candidates.
	userID := uuid.New()
	userTaught, err := svc.Teach(ctx, orgID, TeachInput{
		Category:     domlearning.CategoryAlias,
		TriggerValue: "麻美",
		Content:      datatypes.JSON([]byte(`{"to":"田中麻美"}`)),
		Scope:        domlearning.ScopeUser,
		ScopeTarget:  userID.String(),
		Authority:    domlearning.AuthorityUser,
	})
	if err != nil {
		t.Fatalf("user teach: %v", err)
	}
	ceoTaught, err := svc.Teach(ctx, orgID, TeachInput{
		Category:     domlearning.CategoryAlias,
		TriggerValue: "麻美",
		Content:      datatypes.JSON([]byte(`{"to":"渡部麻美"}`)),
		Scope:        domlearning.ScopeRoom,
		ScopeTarget:  "room-1",
		Authority:    domlearning.AuthorityCEO,
	})
	if err != nil {
		t.Fatalf("ceo teach: %v", err)
	}

	got, err := svc.FindApplicable(ctx, orgID, ApplicableQuery{
		Text:   "麻美さんへの連絡",
		UserID: userID,
		RoomID: "room-1",
	})
	if err != nil {
		t.Fatalf("find applicable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both learnings, got %d", len(got))
	}
	if got[0].ID != ceoTaught.ID {
		t.Fatalf("expected CEO learning first, got authority %s", got[0].Authority)
	}
	if got[1].ID != userTaught.ID {
		t.Fatalf("expected user learning second, got authority %s", got[1].Authority)
	}
}

func TestRecordApplicationDeduplicates(t *testing.T) {
	svc := newLearningService(t)
	ctx := context.Background()
	orgID := uuid.New()

	l, err := svc.Teach(ctx, orgID, TeachInput{
		Category:     domlearning.CategoryFact,
		TriggerValue: "納期",
		Content:      datatypes.JSON([]byte(`{"value":"毎月末"}`)),
		Authority:    domlearning.AuthorityUser,
	})
	if err != nil {
		t.Fatalf("teach: %v", err)
	}

	in := ApplicationInput{LearningID: l.ID, TriggerMessage: "納期っていつ？", Succeeded: true}
	applied, err := svc.RecordApplication(ctx, orgID, in)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !applied {
		t.Fatalf("first application should be recorded")
	}

	// Same message inside the window is dropped.
	applied, err = svc.RecordApplication(ctx, orgID, in)
	if err != nil {
		t.Fatalf("duplicate record: %v", err)
	}
	if applied {
		t.Fatalf("duplicate application should be deduplicated")
	}

	// Counter was bumped exactly once.
	got, err := svc.FindApplicable(ctx, orgID, ApplicableQuery{Text: "納期の確認"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].AppliedCount != 1 || got[0].SuccessCount != 1 {
		t.Fatalf("expected applied=1 success=1, got %+v", got)
	}
}

func TestDecayConfidenceRepeatRunIsStable(t *testing.T) {
	svc := newLearningService(t)
	ctx := context.Background()
	orgID := uuid.New()

	if _, err := svc.Teach(ctx, orgID, TeachInput{
		Category:            domlearning.CategoryFact,
		TriggerValue:        "一時メモ",
		Content:             datatypes.JSON([]byte(`{"value":"x"}`)),
		Authority:           domlearning.AuthorityUser,
		ConfidenceDecayRate: 0.1,
	}); err != nil {
		t.Fatalf("teach: %v", err)
	}

	if _, err := svc.DecayConfidence(ctx, orgID); err != nil {
		t.Fatalf("decay: %v", err)
	}
	first, err := svc.FindApplicable(ctx, orgID, ApplicableQuery{Text: "一時メモを確認"})
	if err != nil || len(first) != 1 {
		t.Fatalf("find after decay: %v (%d rows)", err, len(first))
	}
	c1 := first[0].Confidence

	// Immediate re-run: elapsed time ~0, confidence must stay put.
	if _, err := svc.DecayConfidence(ctx, orgID); err != nil {
		t.Fatalf("second decay: %v", err)
	}
	second, err := svc.FindApplicable(ctx, orgID, ApplicableQuery{Text: "一時メモを確認"})
	if err != nil || len(second) != 1 {
		t.Fatalf("find after second decay: %v", err)
	}
	if diff := second[0].Confidence - c1; diff < -0.001 || diff > 0.001 {
		t.Fatalf("confidence moved on immediate re-run: %f -> %f", c1, second[0].Confidence)
	}
}
