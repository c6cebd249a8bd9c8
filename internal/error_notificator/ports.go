package error_notificator

import "context"

type Notificator interface {
	// Notify reports a service failure to the operator.
	Notify(ctx context.Context, source string, err error, details string) error
}
