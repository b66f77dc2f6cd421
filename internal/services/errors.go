package services

import "errors"

// ErrSyncInProgress is returned when another sync holds the sync lock.
var ErrSyncInProgress = errors.New("sync already in progress")
