package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	domjobs "github.com/soulkun/soulkun-backend/internal/domain/jobs"
	"github.com/soulkun/soulkun-backend/internal/services"
)

// Payload is the enqueue document for the maintenance jobs. Each run targets
// one organization so handlers execute under that tenant's scope.
type Payload struct {
	OrganizationID uuid.UUID `json:"organization_id"`
}

func decodePayload(run *types.JobRun) (Payload, error) {
	var p Payload
	if len(run.Payload) == 0 {
		return p, fmt.Errorf("job %s has no payload", run.ID)
	}
	if err := json.Unmarshal(run.Payload, &p); err != nil {
		return p, fmt.Errorf("decode payload for job %s: %w", run.ID, err)
	}
	if p.OrganizationID == uuid.Nil {
		return p, fmt.Errorf("job %s payload missing organization_id", run.ID)
	}
	return p, nil
}

// RegisterHandlers wires the maintenance handlers into the registry. All
// three delegate to idempotent service operations, so at-least-once delivery
// never double-applies.
func RegisterHandlers(
	reg *Registry,
	goalSessions services.GoalSessionService,
	learnings services.LearningService,
	outcomes services.OutcomeService,
) {
	reg.Register(domjobs.TypeExpireSessions, func(ctx context.Context, run *types.JobRun) (map[string]interface{}, error) {
		p, err := decodePayload(run)
		if err != nil {
			return nil, err
		}
		n, err := goalSessions.ExpireStaleSessions(ctx, p.OrganizationID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"expired": n}, nil
	})

	reg.Register(domjobs.TypeAggregateOutcomes, func(ctx context.Context, run *types.JobRun) (map[string]interface{}, error) {
		p, err := decodePayload(run)
		if err != nil {
			return nil, err
		}
		groups, err := outcomes.Aggregate(ctx, p.OrganizationID)
		if err != nil {
			return nil, err
		}
		promoted, err := outcomes.PromoteEligible(ctx, p.OrganizationID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"groups": groups, "promoted": promoted}, nil
	})

	reg.Register(domjobs.TypeDecayConfidence, func(ctx context.Context, run *types.JobRun) (map[string]interface{}, error) {
		p, err := decodePayload(run)
		if err != nil {
			return nil, err
		}
		n, err := learnings.DecayConfidence(ctx, p.OrganizationID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"decayed": n}, nil
	})
}
