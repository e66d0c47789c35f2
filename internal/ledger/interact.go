package ledger

import "context"

type confirmationKey struct{}

// WithConfirmation stashes the caller's answer for the next Confirm request.
// HTTP handlers use this to carry the client-side dialog result into the
// engine without blocking on any UI.
func WithConfirmation(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmationKey{}, confirmed)
}

// ContextInteractor resolves confirmations from the request context. Absent
// an answer the request is treated as declined.
type ContextInteractor struct{}

func (ContextInteractor) Confirm(ctx context.Context, _, _ string, _ bool) (bool, error) {
	confirmed, _ := ctx.Value(confirmationKey{}).(bool)
	return confirmed, nil
}
