package repos

import (
	"gorm.io/gorm"

	"github.com/soulkun/soulkun-backend/internal/data/repos/episodes"
	"github.com/soulkun/soulkun-backend/internal/data/repos/goals"
	"github.com/soulkun/soulkun-backend/internal/data/repos/jobs"
	"github.com/soulkun/soulkun-backend/internal/data/repos/learning"
	"github.com/soulkun/soulkun-backend/internal/data/repos/outcomes"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type GoalSessionRepo = goals.SessionRepo
type GoalLogRepo = goals.LogRepo
type GoalPatternRepo = goals.PatternRepo

type LearningRepo = learning.LearningRepo
type LearningApplicationLogRepo = learning.ApplicationLogRepo
type LearningMatchContext = learning.MatchContext

type OutcomeEventRepo = outcomes.EventRepo
type OutcomePatternRepo = outcomes.PatternRepo
type OutcomeGroupStat = outcomes.GroupStat

type EpisodeRepo = episodes.EpisodeRepo
type EpisodeRecallQuery = episodes.RecallQuery

type JobRunRepo = jobs.JobRunRepo

func NewGoalSessionRepo(db *gorm.DB, baseLog *logger.Logger) GoalSessionRepo {
	return goals.NewSessionRepo(db, baseLog)
}
func NewGoalLogRepo(db *gorm.DB, baseLog *logger.Logger) GoalLogRepo {
	return goals.NewLogRepo(db, baseLog)
}
func NewGoalPatternRepo(db *gorm.DB, baseLog *logger.Logger) GoalPatternRepo {
	return goals.NewPatternRepo(db, baseLog)
}

func NewLearningRepo(db *gorm.DB, baseLog *logger.Logger) LearningRepo {
	return learning.NewLearningRepo(db, baseLog)
}
func NewLearningApplicationLogRepo(db *gorm.DB, baseLog *logger.Logger) LearningApplicationLogRepo {
	return learning.NewApplicationLogRepo(db, baseLog)
}

func NewOutcomeEventRepo(db *gorm.DB, baseLog *logger.Logger) OutcomeEventRepo {
	return outcomes.NewEventRepo(db, baseLog)
}
func NewOutcomePatternRepo(db *gorm.DB, baseLog *logger.Logger) OutcomePatternRepo {
	return outcomes.NewPatternRepo(db, baseLog)
}

func NewEpisodeRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeRepo {
	return episodes.NewEpisodeRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
