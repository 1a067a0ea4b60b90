package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/community-gateway/internal/repository"
	"github.com/nimasrn/community-gateway/internal/storage"
)

// Not-found and state errors are the repository sentinels, so callers only ever import
// this package to classify failures.
var (
	ErrUserNotFound        = repository.ErrUserNotFound
	ErrGroupNotFound       = repository.ErrGroupNotFound
	ErrAssetNotFound       = repository.ErrAssetNotFound
	ErrRoomNotFound        = repository.ErrRoomNotFound
	ErrTransactionNotFound = repository.ErrTransactionNotFound
	ErrPayoutNotFound      = repository.ErrPayoutNotFound
	ErrPayoutAlreadyPaid   = repository.ErrPayoutAlreadyPaid
	ErrResetTokenNotFound  = repository.ErrResetTokenNotFound
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyJoined = errors.New("you already joined group")
	ErrGroupIsPaid   = errors.New("this group is paid")
	ErrGroupIsFree   = errors.New("this group is free")
)

// Transactor opens a database transaction carried by the context it hands to fn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FileStore resolves public URLs of uploaded files and removes them.
type FileStore interface {
	URL(kind storage.Kind, filename string) string
	Remove(kind storage.Kind, filename string)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
