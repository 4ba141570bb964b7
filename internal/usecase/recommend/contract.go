package recommend

import "context"

// Agent answers free-form queries with a JSON card list.
type Agent interface {
	Ask(ctx context.Context, message string) (string, error)
}
