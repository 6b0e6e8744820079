package sessions

import "context"

// Store persists sessions for the lifetime of a browser session.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}
