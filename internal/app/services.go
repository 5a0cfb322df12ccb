package app

import (
	"gorm.io/gorm"

	redisclient "github.com/soulkun/soulkun-backend/internal/clients/redis"
	"github.com/soulkun/soulkun-backend/internal/jobs"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
	"github.com/soulkun/soulkun-backend/internal/services"
)

type Services struct {
	GoalSessions services.GoalSessionService
	Learnings    services.LearningService
	Outcomes     services.OutcomeService
	Episodes     services.EpisodeService

	JobRegistry *jobs.Registry
	JobWorker   *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, cache *redisclient.Client) Services {
	goalSessions := services.NewGoalSessionService(db, log, cfg.GoalSession, r.GoalSessions, r.GoalLogs, r.GoalPatterns)
	learnings := services.NewLearningService(db, log, cfg.Learning, cache, r.Learnings, r.ApplicationLogs)
	outcomes := services.NewOutcomeService(db, log, cfg.Outcome, r.OutcomeEvents, r.OutcomePatterns, r.Learnings)
	episodes := services.NewEpisodeService(db, log, r.Episodes)

	registry := jobs.NewRegistry()
	jobs.RegisterHandlers(registry, goalSessions, learnings, outcomes)
	worker := jobs.NewWorker(log, cfg.Worker, r.JobRuns, registry)

	return Services{
		GoalSessions: goalSessions,
		Learnings:    learnings,
		Outcomes:     outcomes,
		Episodes:     episodes,
		JobRegistry:  registry,
		JobWorker:    worker,
	}
}
