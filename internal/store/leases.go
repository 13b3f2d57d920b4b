package store

import (
	"context"

	"claimlease/internal/leasing"
)

func (s *Store) UpsertLease(ctx context.Context, rec leasing.LeaseRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO leases (claim_id, holder, lease_start, lease_expiry, fired_reminders, pending_expiry_notice, under_eviction)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (claim_id) DO UPDATE
		SET holder = EXCLUDED.holder,
		    lease_start = EXCLUDED.lease_start,
		    lease_expiry = EXCLUDED.lease_expiry,
		    fired_reminders = EXCLUDED.fired_reminders,
		    pending_expiry_notice = EXCLUDED.pending_expiry_notice,
		    under_eviction = EXCLUDED.under_eviction,
		    updated_at = now()
	`, rec.ClaimID, rec.Holder, rec.LeaseStart, rec.LeaseExpiry, rec.FiredList(), rec.PendingExpiryNotice, rec.UnderEviction)
	return err
}

func (s *Store) DeleteLease(ctx context.Context, claimID string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM leases WHERE claim_id = $1`, claimID)
	return err
}

func (s *Store) ListLeases(ctx context.Context) ([]leasing.LeaseRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT claim_id, holder, lease_start, lease_expiry, fired_reminders, pending_expiry_notice, under_eviction
		FROM leases
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []leasing.LeaseRecord{}
	for rows.Next() {
		var rec leasing.LeaseRecord
		var fired []string
		if err := rows.Scan(&rec.ClaimID, &rec.Holder, &rec.LeaseStart, &rec.LeaseExpiry, &fired, &rec.PendingExpiryNotice, &rec.UnderEviction); err != nil {
			return nil, err
		}
		rec.FiredReminders = leasing.FiredSetFromList(fired)
		out = append(out, rec)
	}
	return out, rows.Err()
}
