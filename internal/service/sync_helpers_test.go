package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/internal/repository"
)

type sentSheet struct {
	Sheet string
	Data  []models.Record
}

// fakeRemote mimics the spreadsheet web app: a save replaces the sheet that a
// later getAll returns.
type fakeRemote struct {
	mu       sync.Mutex
	sheets   map[string]json.RawMessage
	fetchErr error
	sendErr  error
	sent     []sentSheet
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{sheets: make(map[string]json.RawMessage)}
}

func (f *fakeRemote) FetchAll(ctx context.Context) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make(map[string]json.RawMessage, len(f.sheets))
	for k, v := range f.sheets {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRemote) Send(ctx context.Context, sheet string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var records []models.Record
	_ = json.Unmarshal(raw, &records)
	f.sent = append(f.sent, sentSheet{Sheet: sheet, Data: records})
	if c, ok := models.ParseCollection(sheet); ok {
		f.sheets[c.RemoteKey()] = raw
	}
	return nil
}

func (f *fakeRemote) seed(collection models.Collection, records interface{}) {
	raw, _ := json.Marshal(records)
	f.mu.Lock()
	f.sheets[collection.RemoteKey()] = raw
	f.mu.Unlock()
}

func (f *fakeRemote) goOffline() {
	f.mu.Lock()
	f.fetchErr = errors.New("dial tcp: network is unreachable")
	f.sendErr = f.fetchErr
	f.mu.Unlock()
}

func (f *fakeRemote) sends() []sentSheet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSheet(nil), f.sent...)
}

func newTestSync(remote RemoteCollectionClient) (*SyncService, *repository.MemoryCacheRepository) {
	repo := repository.NewMemoryCacheRepository()
	cache := NewLocalCacheStore(repo, nil, nil)
	return NewSyncService(cache, remote, nil, nil), repo
}
