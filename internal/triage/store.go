package triage

import "context"

// Store is the persistence interface for analysis reports.
type Store interface {
	Get(ctx context.Context, id string) (*Report, bool, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Report, bool, error)
	Put(ctx context.Context, report *Report) error
}

// Notifier delivers a finished report to an external channel.
type Notifier interface {
	Notify(ctx context.Context, report *Report) error
}
