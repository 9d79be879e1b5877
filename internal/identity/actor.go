// Package identity carries the authenticated-actor contract consumed by the
// workflow and allocation engines. Token issuance happens elsewhere; this
// package only resolves and transports the identity.
package identity

import "context"

// Actor is the authenticated identity every operation receives.
type Actor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	BranchID int64  `json:"branch_id"`
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
