// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package storage

import (
	"context"
	"errors"
	"io"
)

// ErrStorageDisabled is returned by [Disabled] for any upload attempt.
var ErrStorageDisabled = errors.New("storage: object storage is not configured")

// Disabled is the no-op blob store used when no bucket is configured.
// Uploads fail; deletes succeed silently so account removal still works.
type Disabled struct{}

func (Disabled) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	return "", ErrStorageDisabled
}

func (Disabled) Delete(ctx context.Context, key string) error {
	return nil
}
