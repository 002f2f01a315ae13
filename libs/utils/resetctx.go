package utils

import "context"

// ResetContextOnError returns the context if it is still alive, otherwise a background context, so
// that metrics of canceled operations are still recorded.
func ResetContextOnError(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	return ctx
}
