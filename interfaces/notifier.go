package interfaces

import "context"

// ErrorNotifier is best effort: failures are logged, never returned.
type ErrorNotifier interface {
	Notify(ctx context.Context, subject, message string)
}
