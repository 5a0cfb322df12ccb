package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
)

// Scope runs fn inside a transaction whose DB session carries the tenant
// setting consumed by the RLS policies. set_config(..., true) is SET LOCAL:
// the setting dies with the transaction on commit and rollback alike, so a
// pooled connection can never leak one tenant's context into the next request.
func Scope(ctx context.Context, db *gorm.DB, orgID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if orgID == uuid.Nil {
		return apperrors.ErrTenantContextMissing
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT set_config('app.org_id', ?, true)`, orgID.String()).Error; err != nil {
			return fmt.Errorf("set tenant context: %w", err)
		}
		return fn(tx)
	})
}

// OrgID reads the tenant setting back from the transaction. Returns
// ErrTenantContextMissing when no tenant has been set, so callers fail loudly
// instead of treating an empty result set as "no data".
func OrgID(tx *gorm.DB) (uuid.UUID, error) {
	var raw string
	if err := tx.Raw(`SELECT COALESCE(current_setting('app.org_id', true), '')`).Scan(&raw).Error; err != nil {
		return uuid.Nil, fmt.Errorf("read tenant context: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, apperrors.ErrTenantContextMissing
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed tenant context %q: %w", raw, err)
	}
	return id, nil
}
