package repository

import "errors"

// ErrOptimisticLock means the row changed (or appeared) between read and write.
var ErrOptimisticLock = errors.New("record was modified by another operation")
