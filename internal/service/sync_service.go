package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/jobs"
	"github.com/noah-isme/senja-literasi-api/pkg/middleware/requestid"
)

const sendJobType = "sheets.send"

// RemoteCollectionClient is the spreadsheet backend.
type RemoteCollectionClient interface {
	FetchAll(ctx context.Context) (map[string]json.RawMessage, error)
	Send(ctx context.Context, sheet string, data interface{}) error
}

type sendJob struct {
	Collection models.Collection
	Records    []models.Record
}

// SyncService reads remote-first with cache fallback and writes cache-first with
// a best-effort remote push. Remote failures never reach callers; they surface as
// SyncEvents, log lines and metrics.
type SyncService struct {
	cache   *LocalCacheStore
	remote  RemoteCollectionClient
	metrics *MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue
	now     func() time.Time

	mu        sync.Mutex
	status    map[models.Collection]*models.SyncStatus
	listeners []func(models.SyncEvent)

	locksMu sync.Mutex
	locks   map[models.Collection]*sync.Mutex
}

// NewSyncService wires the cache and the remote client. Sends run inline until
// EnableAsync is called.
func NewSyncService(cache *LocalCacheStore, remote RemoteCollectionClient, metrics *MetricsService, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		cache:   cache,
		remote:  remote,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		status:  make(map[models.Collection]*models.SyncStatus),
		locks:   make(map[models.Collection]*sync.Mutex),
	}
}

// EnableAsync moves remote sends onto a worker queue. Call Start afterwards.
func (s *SyncService) EnableAsync(cfg jobs.QueueConfig) {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	s.queue = jobs.NewQueue("sheets-sync", s.handleSendJob, cfg)
}

// Start launches the async workers, if enabled. Cancelling ctx does not stop
// them; queued sends keep draining until Stop.
func (s *SyncService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop waits for queued sends up to ctx and then halts the workers.
func (s *SyncService) Stop(ctx context.Context) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Flush(ctx); err != nil {
		s.logger.Warn("pending sheet sends dropped on shutdown", zap.Int("pending", s.queue.Pending()), zap.Error(err))
	}
	s.queue.Stop()
}

// Flush blocks until queued sends finish. It returns immediately in inline mode.
func (s *SyncService) Flush(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.Flush(ctx)
}

// OnEvent registers a listener for every remote exchange outcome.
func (s *SyncService) OnEvent(fn func(models.SyncEvent)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Lock serialises read-modify-write cycles on one collection within this process.
func (s *SyncService) Lock(collection models.Collection) func() {
	s.locksMu.Lock()
	m, ok := s.locks[collection]
	if !ok {
		m = &sync.Mutex{}
		s.locks[collection] = m
	}
	s.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Read fetches the collection from the remote and refreshes the cache. When the
// remote is unreachable, errors, or lacks the collection, the cached copy is
// returned unchanged.
func (s *SyncService) Read(ctx context.Context, collection models.Collection) ([]models.Record, error) {
	records, err := s.fetch(ctx, collection)
	if err != nil {
		logFn := s.logger.Warn
		if s.remote == nil {
			logFn = s.logger.Debug
		}
		logFn("remote read failed, using local cache",
			zap.String("collection", string(collection)),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
		s.emit(models.SyncEvent{Collection: collection, Kind: models.SyncKindFetch, Outcome: models.SyncOutcomeFallback, Error: err.Error()})
		return s.cache.Read(ctx, collection)
	}

	if err := s.cache.Write(ctx, collection, records); err != nil {
		s.logger.Warn("failed to refresh local cache", zap.String("collection", string(collection)), zap.Error(err))
	}
	s.emit(models.SyncEvent{Collection: collection, Kind: models.SyncKindFetch, Outcome: models.SyncOutcomeOK, Records: len(records)})
	return records, nil
}

// ReadCached returns the local copy without contacting the remote.
func (s *SyncService) ReadCached(ctx context.Context, collection models.Collection) ([]models.Record, error) {
	return s.cache.Read(ctx, collection)
}

// Write stores records locally and then pushes them upstream. Once the cache
// write succeeds the call succeeds; the upstream copy may lag or diverge.
func (s *SyncService) Write(ctx context.Context, collection models.Collection, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	if err := s.cache.Write(ctx, collection, records); err != nil {
		return err
	}

	if s.queue != nil {
		job := jobs.Job{ID: uuid.NewString(), Type: sendJobType, Payload: sendJob{Collection: collection, Records: records}}
		// queued is recorded first so a fast worker's outcome is not overwritten
		s.emit(models.SyncEvent{Collection: collection, Kind: models.SyncKindSend, Outcome: models.SyncOutcomeQueued, Records: len(records)})
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to queue sheet send", zap.String("collection", string(collection)), zap.Error(err))
			s.emit(models.SyncEvent{Collection: collection, Kind: models.SyncKindSend, Outcome: models.SyncOutcomeFailed, Records: len(records), Error: err.Error()})
		}
		return nil
	}

	_ = s.send(context.WithoutCancel(ctx), collection, records)
	return nil
}

// Status lists the last fetch and send outcome per collection.
func (s *SyncService) Status() []models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncStatus, 0, len(s.status))
	for _, st := range s.status {
		entry := models.SyncStatus{Collection: st.Collection}
		if st.LastFetch != nil {
			ev := *st.LastFetch
			entry.LastFetch = &ev
		}
		if st.LastSend != nil {
			ev := *st.LastSend
			entry.LastSend = &ev
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out
}

func (s *SyncService) fetch(ctx context.Context, collection models.Collection) ([]models.Record, error) {
	if s.remote == nil {
		return nil, remoteUnavailable(errors.New("no remote configured"))
	}
	payload, err := s.remote.FetchAll(ctx)
	if err != nil {
		return nil, remoteUnavailable(err)
	}
	raw, ok := payload[collection.RemoteKey()]
	if !ok {
		return nil, remoteUnavailable(fmt.Errorf("collection %s missing from remote payload", collection.RemoteKey()))
	}
	var records []models.Record
	if err := json.Unmarshal(raw, &records); err != nil || records == nil {
		return nil, remoteUnavailable(fmt.Errorf("collection %s is not an array", collection.RemoteKey()))
	}
	return records, nil
}

// remoteUnavailable tags a failed fetch so callers treat it as "use the cache",
// never as an empty collection.
func remoteUnavailable(err error) error {
	return appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, appErrors.ErrRemoteUnavailable.Message)
}

func (s *SyncService) send(ctx context.Context, collection models.Collection, records []models.Record) error {
	if s.remote == nil {
		return nil
	}
	if err := s.remote.Send(ctx, string(collection), records); err != nil {
		s.logger.Error("remote write failed, keeping local copy",
			zap.String("collection", string(collection)),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
		s.emit(models.SyncEvent{Collection: collection, Kind: models.SyncKindSend, Outcome: models.SyncOutcomeFailed, Records: len(records), Error: err.Error()})
		return err
	}
	s.emit(models.SyncEvent{Collection: collection, Kind: models.SyncKindSend, Outcome: models.SyncOutcomeOK, Records: len(records)})
	return nil
}

func (s *SyncService) handleSendJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(sendJob)
	if !ok {
		s.logger.Error("unexpected sync job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.send(ctx, payload.Collection, payload.Records)
}

func (s *SyncService) emit(event models.SyncEvent) {
	event.At = s.now().UTC()
	s.metrics.RecordSync(event)

	s.mu.Lock()
	st, ok := s.status[event.Collection]
	if !ok {
		st = &models.SyncStatus{Collection: event.Collection}
		s.status[event.Collection] = st
	}
	ev := event
	switch event.Kind {
	case models.SyncKindFetch:
		st.LastFetch = &ev
	case models.SyncKindSend:
		st.LastSend = &ev
	}
	listeners := append([]func(models.SyncEvent){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}
