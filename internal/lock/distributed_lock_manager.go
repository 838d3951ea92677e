package lock

import "context"

// DistributedLockManager serializes work across instances by numeric lock id.
type DistributedLockManager interface {
	Acquire(ctx context.Context, lockID int) error
	Release(ctx context.Context, lockID int) error
}
