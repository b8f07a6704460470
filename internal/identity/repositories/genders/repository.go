package genders

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/identity/models"
)

type Repository interface {
	Exists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]models.Gender, error)
}
