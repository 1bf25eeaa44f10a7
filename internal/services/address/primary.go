package address

import (
	"context"
	"time"

	"erpcore/internal/models"
	"erpcore/internal/services/audit"
	"erpcore/internal/store"

	"github.com/google/uuid"
)

// promote makes a the user's only primary address inside tx: the other
// primaries are demoted first, then a is flagged. Both writes share the
// caller's transaction. a must already exist.
func promote(ctx context.Context, tx store.Store, a *models.Address, now time.Time, p *audit.Pending) error {
	if err := demoteOthers(ctx, tx, a.UserID, a.ID, p); err != nil {
		return err
	}
	if a.IsPrimary {
		return nil
	}
	a.IsPrimary = true
	a.UpdatedAt = &now
	if err := tx.Addresses().Update(ctx, a); err != nil {
		return err
	}
	c := audit.Changes{}
	c.TrackBool("IsPrimary", false, true)
	p.Add(a.UserID, audit.EntityAddress, a.ID.String(), c)
	return nil
}

func demoteOthers(ctx context.Context, tx store.Store, userID, keep uuid.UUID, p *audit.Pending) error {
	demoted, err := tx.Addresses().ClearPrimary(ctx, userID, keep)
	if err != nil {
		return err
	}
	for _, id := range demoted {
		c := audit.Changes{}
		c.TrackBool("IsPrimary", true, false)
		p.Add(userID, audit.EntityAddress, id.String(), c)
	}
	return nil
}
