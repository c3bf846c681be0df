package models

import "time"

// SyncKind distinguishes remote reads from remote writes.
type SyncKind string

const (
	SyncKindFetch SyncKind = "fetch"
	SyncKindSend  SyncKind = "send"
)

// SyncOutcome describes how a remote exchange ended.
type SyncOutcome string

const (
	SyncOutcomeOK       SyncOutcome = "ok"
	SyncOutcomeFallback SyncOutcome = "fallback"
	SyncOutcomeFailed   SyncOutcome = "failed"
	SyncOutcomeQueued   SyncOutcome = "queued"
)

// SyncEvent is emitted after every remote fetch or send attempt.
type SyncEvent struct {
	Collection Collection  `json:"collection"`
	Kind       SyncKind    `json:"kind"`
	Outcome    SyncOutcome `json:"outcome"`
	Records    int         `json:"records"`
	Error      string      `json:"error,omitempty"`
	At         time.Time   `json:"at"`
}

// SyncStatus is the latest event per collection and kind.
type SyncStatus struct {
	Collection Collection `json:"collection"`
	LastFetch  *SyncEvent `json:"lastFetch,omitempty"`
	LastSend   *SyncEvent `json:"lastSend,omitempty"`
}

// MetricsSnapshot summarises process counters for the sync status endpoint.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	FetchFallbacks           uint64    `json:"fetchFallbacks"`
	SendFailures             uint64    `json:"sendFailures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
