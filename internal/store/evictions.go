package store

import (
	"context"

	"claimlease/internal/leasing"
)

func (s *Store) UpsertEviction(ctx context.Context, n leasing.EvictionNotice) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO eviction_notices (claim_id, owner_id, renter_id, initiated_at, effective_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (claim_id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    renter_id = EXCLUDED.renter_id,
		    initiated_at = EXCLUDED.initiated_at,
		    effective_at = EXCLUDED.effective_at
	`, n.ClaimID, n.Owner, n.Renter, n.InitiatedAt, n.EffectiveAt)
	return err
}

func (s *Store) DeleteEviction(ctx context.Context, claimID string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM eviction_notices WHERE claim_id = $1`, claimID)
	return err
}

func (s *Store) ListEvictions(ctx context.Context) ([]leasing.EvictionNotice, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT claim_id, owner_id, renter_id, initiated_at, effective_at
		FROM eviction_notices
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []leasing.EvictionNotice{}
	for rows.Next() {
		var n leasing.EvictionNotice
		if err := rows.Scan(&n.ClaimID, &n.Owner, &n.Renter, &n.InitiatedAt, &n.EffectiveAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
