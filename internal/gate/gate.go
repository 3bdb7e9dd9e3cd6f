// Package gate resolves callers onto their owning engine and decides whether
// a sender may message a target. Decisions are evaluated fresh on every call:
// block and privacy state can change between sends, so nothing here caches.
package gate

import (
	"context"

	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/internal/routing"
	"github.com/crewline/crewline-backend/internal/store"
	"github.com/crewline/crewline-backend/pkg/errors"
)

// Resolver routes a user id to the store owning that user's data. The user
// directory is the external collaborator that answers "who is this user";
// in this process it is backed by the primary engine's user table.
type Resolver struct {
	Directory store.UserStore
	Selector  *routing.Selector
	Registry  *store.Registry
}

// StoreFor resolves one user onto an engine.
func (r *Resolver) StoreFor(ctx context.Context, userID string) (store.Store, *models.User, error) {
	user, err := r.Directory.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	sel := r.Selector.Resolve(user)
	st, ok := r.Registry.For(sel.Engine)
	if !ok {
		return nil, nil, errors.Internal("Storage engine not configured: " + string(sel.Engine))
	}
	return st, user, nil
}

// PairStore resolves two users and rejects the operation outright when they
// live on different engines. Nothing in this core spans two backends.
func (r *Resolver) PairStore(ctx context.Context, userA, userB string) (store.Store, *models.User, *models.User, error) {
	stA, a, err := r.StoreFor(ctx, userA)
	if err != nil {
		return nil, nil, nil, err
	}
	stB, b, err := r.StoreFor(ctx, userB)
	if err != nil {
		return nil, nil, nil, err
	}
	if stA.Engine() != stB.Engine() {
		return nil, nil, nil, errors.CrossRegion("Users are owned by different storage engines")
	}
	return stA, a, b, nil
}

// Denial reasons
const (
	ReasonBlocked           = "blocked"
	ReasonPrivacyRestricted = "privacy_restricted"
)

// Decision is the permission outcome. Reason is set only when denied.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type Gate struct {
	resolver *Resolver
}

func New(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// CheckSendPermission decides whether sender may message target:
// a block in either direction denies; the target's privacy flag allows
// non-friends; otherwise a mutual contact edge or accepted request is
// required.
func (g *Gate) CheckSendPermission(ctx context.Context, senderID, targetID string) (Decision, error) {
	st, _, target, err := g.resolver.PairStore(ctx, senderID, targetID)
	if err != nil {
		return Decision{}, err
	}

	blocked, err := st.BlockExists(ctx, senderID, targetID)
	if err != nil {
		return Decision{}, err
	}
	if blocked {
		return Decision{Reason: ReasonBlocked}, nil
	}

	if target.AllowNonFriendMessages {
		return Decision{Allowed: true}, nil
	}

	mutual, err := st.ContactsMutual(ctx, senderID, targetID)
	if err != nil {
		return Decision{}, err
	}
	if mutual {
		return Decision{Allowed: true}, nil
	}

	accepted, err := st.HasAcceptedRequest(ctx, senderID, targetID)
	if err != nil {
		return Decision{}, err
	}
	if accepted {
		return Decision{Allowed: true}, nil
	}

	return Decision{Reason: ReasonPrivacyRestricted}, nil
}
