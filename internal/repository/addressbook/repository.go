package addressbook

import (
	"context"

	"contactshare/internal/domain"
)

// Store is the local address book the engine reconciles against. Lookups
// return domain.ErrNotFound when no contact matches; any other error means
// the store itself failed and the caller decides how to surface that.
type Store interface {
	FindIDByPhone(ctx context.Context, number string) (string, error)
	FindIDByEmail(ctx context.Context, email string) (string, error)
	ReadContact(ctx context.Context, id string) (*domain.Contact, error)
	InsertContact(ctx context.Context, c domain.Contact) (string, error)
	ApplyInsert(ctx context.Context, id string, diff domain.ContactDiff) error
}
