// Package registry resolves claims and manages ownership and access grants.
package registry

import (
	"context"
	"errors"

	"claimlease/internal/leasing"
	"claimlease/internal/store"
)

type Registry struct {
	Store *store.Store
}

func New(s *store.Store) *Registry {
	return &Registry{Store: s}
}

func (r *Registry) FindClaim(ctx context.Context, claimID string) (leasing.Claim, error) {
	c, err := r.Store.GetClaim(ctx, claimID)
	if errors.Is(err, store.ErrNotFound) {
		return leasing.Claim{}, leasing.ErrNotFound
	}
	return c, err
}

func (r *Registry) OwnerOf(ctx context.Context, claimID string) (string, error) {
	c, err := r.FindClaim(ctx, claimID)
	if err != nil {
		return "", err
	}
	return c.Owner, nil
}

func (r *Registry) RegisterClaim(ctx context.Context, c leasing.Claim) error {
	return r.Store.UpsertClaim(ctx, c)
}

func (r *Registry) ListClaims(ctx context.Context) ([]leasing.Claim, error) {
	return r.Store.ListClaims(ctx)
}

// GrantAccess lets identity use the claim for the duration of a lease.
func (r *Registry) GrantAccess(ctx context.Context, claimID, identity string) error {
	return r.Store.AddClaimGrant(ctx, claimID, identity)
}

func (r *Registry) RevokeAccess(ctx context.Context, claimID, identity string) error {
	return r.Store.RemoveClaimGrant(ctx, claimID, identity)
}

// TransferOwnership moves a claim to a new owner and clears all grants the
// old owner handed out.
func (r *Registry) TransferOwnership(ctx context.Context, claimID, newOwner string) error {
	if err := r.Store.UpdateClaimOwner(ctx, claimID, newOwner); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return leasing.ErrNotFound
		}
		return err
	}
	return r.Store.RemoveClaimGrants(ctx, claimID)
}
