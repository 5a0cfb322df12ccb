package domain

import (
	"github.com/soulkun/soulkun-backend/internal/domain/episodes"
	"github.com/soulkun/soulkun-backend/internal/domain/goals"
	"github.com/soulkun/soulkun-backend/internal/domain/jobs"
	"github.com/soulkun/soulkun-backend/internal/domain/learning"
	"github.com/soulkun/soulkun-backend/internal/domain/outcomes"
)

// Read-sensitivity classification, gated at the application layer (RLS only
// enforces tenancy, not sensitivity).
const (
	ClassificationPublic       = "public"
	ClassificationInternal     = "internal"
	ClassificationConfidential = "confidential"
	ClassificationRestricted   = "restricted"
)

type GoalSettingSession = goals.GoalSettingSession
type GoalSettingLog = goals.GoalSettingLog
type GoalSettingPattern = goals.GoalSettingPattern
type Evaluation = goals.Evaluation

type Learning = learning.Learning
type LearningApplicationLog = learning.LearningApplicationLog
type AuthorityLevel = learning.AuthorityLevel

type OutcomeEvent = outcomes.OutcomeEvent
type OutcomePattern = outcomes.OutcomePattern

type Episode = episodes.Episode

type JobRun = jobs.JobRun
