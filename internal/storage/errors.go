package storage

import "pack-portal/internal/model"

// ErrNotFound is returned when the backend has no object for a locator.
var ErrNotFound = model.ErrObjectNotFound
