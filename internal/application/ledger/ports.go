package ledger

import (
	"context"
	"errors"
	"io"
	"time"
)

// Action is something an actor may be allowed to do in the ledger
type Action string

const (
	ActionCreate   Action = "create"
	ActionRevise   Action = "revise"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionResubmit Action = "resubmit"
	ActionRead     Action = "read"
	ActionInward   Action = "inward"
)

// Actor is the authenticated caller of a ledger operation
type Actor struct {
	ID          string
	Username    string
	Permissions []string
}

// Authorizer decides whether an actor may perform an action
type Authorizer interface {
	Can(actor Actor, action Action) bool
}

// AttachmentFile is one uploaded document waiting to be stored
type AttachmentFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// AttachmentStore persists documents and returns a stable URL for each
type AttachmentStore interface {
	Upload(ctx context.Context, file AttachmentFile) (string, error)
}

// ErrLockTimeout is wrapped by KeyLocker implementations when a key stayed held
// by someone else for longer than the locker is willing to wait
var ErrLockTimeout = errors.New("lock wait timed out")

// KeyLocker provides mutual exclusion per key.
// Acquire blocks until the key is held or ctx ends; the returned func releases it.
type KeyLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Metrics records operational measurements of the ledger services
type Metrics interface {
	RecordLockWait(ctx context.Context, scope string, wait time.Duration)
	RecordRejection(ctx context.Context, operation, code string)
}

type noopMetrics struct{}

func (noopMetrics) RecordLockWait(context.Context, string, time.Duration) {}
func (noopMetrics) RecordRejection(context.Context, string, string)      {}
