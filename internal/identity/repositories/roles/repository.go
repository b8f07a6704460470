package roles

import "context"

type Repository interface {
	Assign(ctx context.Context, userID, role string) error
	ForUser(ctx context.Context, userID string) ([]string, error)
}
