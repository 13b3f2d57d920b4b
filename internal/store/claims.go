package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"claimlease/internal/leasing"
)

func (s *Store) GetClaim(ctx context.Context, claimID string) (leasing.Claim, error) {
	var c leasing.Claim
	var periodSecs int64
	var capSecs int64
	err := s.Pool.QueryRow(ctx, `
		SELECT id, owner_id, rent_price, rent_period_seconds, rent_max_cap_seconds, sale_price
		FROM claims WHERE id = $1
	`, claimID).Scan(&c.ID, &c.Owner, &c.RentPrice, &periodSecs, &capSecs, &c.SalePrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return leasing.Claim{}, ErrNotFound
	}
	if err != nil {
		return leasing.Claim{}, err
	}
	c.RentPeriod = time.Duration(periodSecs) * time.Second
	c.RentMaxCap = time.Duration(capSecs) * time.Second
	return c, nil
}

func (s *Store) UpsertClaim(ctx context.Context, c leasing.Claim) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO claims (id, owner_id, rent_price, rent_period_seconds, rent_max_cap_seconds, sale_price)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    rent_price = EXCLUDED.rent_price,
		    rent_period_seconds = EXCLUDED.rent_period_seconds,
		    rent_max_cap_seconds = EXCLUDED.rent_max_cap_seconds,
		    sale_price = EXCLUDED.sale_price,
		    updated_at = now()
	`, c.ID, c.Owner, c.RentPrice, int64(c.RentPeriod/time.Second), int64(c.RentMaxCap/time.Second), c.SalePrice)
	return err
}

func (s *Store) UpdateClaimOwner(ctx context.Context, claimID, newOwner string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE claims SET owner_id = $2, updated_at = now() WHERE id = $1
	`, claimID, newOwner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListClaims(ctx context.Context) ([]leasing.Claim, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, owner_id, rent_price, rent_period_seconds, rent_max_cap_seconds, sale_price
		FROM claims ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []leasing.Claim{}
	for rows.Next() {
		var c leasing.Claim
		var periodSecs, capSecs int64
		if err := rows.Scan(&c.ID, &c.Owner, &c.RentPrice, &periodSecs, &capSecs, &c.SalePrice); err != nil {
			return nil, err
		}
		c.RentPeriod = time.Duration(periodSecs) * time.Second
		c.RentMaxCap = time.Duration(capSecs) * time.Second
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddClaimGrant(ctx context.Context, claimID, identity string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO claim_grants (claim_id, identity)
		VALUES ($1,$2)
		ON CONFLICT (claim_id, identity) DO NOTHING
	`, claimID, identity)
	return err
}

func (s *Store) RemoveClaimGrant(ctx context.Context, claimID, identity string) error {
	_, err := s.Pool.Exec(ctx, `
		DELETE FROM claim_grants WHERE claim_id = $1 AND identity = $2
	`, claimID, identity)
	return err
}

func (s *Store) RemoveClaimGrants(ctx context.Context, claimID string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM claim_grants WHERE claim_id = $1`, claimID)
	return err
}

func (s *Store) ListClaimGrants(ctx context.Context, claimID string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT identity FROM claim_grants WHERE claim_id = $1 ORDER BY identity
	`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
