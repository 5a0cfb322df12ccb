package app

import (
	"gorm.io/gorm"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type Repos struct {
	GoalSessions repos.GoalSessionRepo
	GoalLogs     repos.GoalLogRepo
	GoalPatterns repos.GoalPatternRepo

	Learnings       repos.LearningRepo
	ApplicationLogs repos.LearningApplicationLogRepo

	OutcomeEvents   repos.OutcomeEventRepo
	OutcomePatterns repos.OutcomePatternRepo

	Episodes repos.EpisodeRepo

	JobRuns repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		GoalSessions: repos.NewGoalSessionRepo(db, log),
		GoalLogs:     repos.NewGoalLogRepo(db, log),
		GoalPatterns: repos.NewGoalPatternRepo(db, log),

		Learnings:       repos.NewLearningRepo(db, log),
		ApplicationLogs: repos.NewLearningApplicationLogRepo(db, log),

		OutcomeEvents:   repos.NewOutcomeEventRepo(db, log),
		OutcomePatterns: repos.NewOutcomePatternRepo(db, log),

		Episodes: repos.NewEpisodeRepo(db, log),

		JobRuns: repos.NewJobRunRepo(db, log),
	}
}
