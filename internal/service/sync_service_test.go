package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/jobs"
)

func TestSyncReadRefreshesCache(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(models.CollectionMaterials, []models.Record{{"id": "m1"}})
	svc, _ := newTestSync(remote)
	ctx := context.Background()

	records, err := svc.Read(ctx, models.CollectionMaterials)
	require.NoError(t, err)
	require.Len(t, records, 1)

	cached, err := svc.ReadCached(ctx, models.CollectionMaterials)
	require.NoError(t, err)
	assert.Equal(t, records, cached)
}

func TestSyncReadRemoteWinsOverCache(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestSync(remote)
	ctx := context.Background()

	require.NoError(t, svc.cache.Write(ctx, models.CollectionStudents, []models.Record{{"nisn": "old"}}))
	remote.seed(models.CollectionStudents, []models.Record{{"nisn": "new"}})

	records, err := svc.Read(ctx, models.CollectionStudents)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0]["nisn"])
}

func TestSyncReadFallsBackWhenRemoteFails(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestSync(remote)
	ctx := context.Background()

	prior := []models.Record{{"id": "m1", "title": "A"}, {"id": "m2", "title": "B"}}
	require.NoError(t, svc.cache.Write(ctx, models.CollectionMaterials, prior))
	remote.goOffline()

	var events []models.SyncEvent
	svc.OnEvent(func(e models.SyncEvent) { events = append(events, e) })

	records, err := svc.Read(ctx, models.CollectionMaterials)
	require.NoError(t, err)
	assert.Equal(t, prior, records)
	require.Len(t, events, 1)
	assert.Equal(t, models.SyncOutcomeFallback, events[0].Outcome)
	assert.Contains(t, events[0].Error, appErrors.ErrRemoteUnavailable.Message)

	_, err = svc.fetch(ctx, models.CollectionMaterials)
	assert.True(t, errors.Is(err, appErrors.ErrRemoteUnavailable))
}

func TestSyncReadFallsBackOnMissingOrNonArrayCollection(t *testing.T) {
	remote := newFakeRemote()
	remote.sheets["settings"] = json.RawMessage(`{"oops":true}`)
	svc, _ := newTestSync(remote)
	ctx := context.Background()

	prior := []models.Record{{"key": "a", "value": "1"}}
	require.NoError(t, svc.cache.Write(ctx, models.CollectionSettings, prior))
	require.NoError(t, svc.cache.Write(ctx, models.CollectionUsers, []models.Record{{"id": "u1"}}))

	records, err := svc.Read(ctx, models.CollectionSettings)
	require.NoError(t, err)
	assert.Equal(t, prior, records)

	users, err := svc.Read(ctx, models.CollectionUsers)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSyncWriteThenCachedReadReturnsWrittenSequence(t *testing.T) {
	for _, collection := range models.Collections {
		t.Run(string(collection), func(t *testing.T) {
			remote := newFakeRemote()
			remote.goOffline()
			svc, _ := newTestSync(remote)
			ctx := context.Background()

			written := []models.Record{{"id": "1", "n": "x"}, {"id": "2", "n": "y"}}
			require.NoError(t, svc.Write(ctx, collection, written))

			got, err := svc.ReadCached(ctx, collection)
			require.NoError(t, err)
			assert.Equal(t, written, got)
		})
	}
}

func TestSyncWriteSwallowsRemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.sendErr = errors.New("connection reset")
	svc, _ := newTestSync(remote)

	require.NoError(t, svc.Write(context.Background(), models.CollectionUsers, []models.Record{{"id": "u1"}}))

	status := svc.Status()
	require.Len(t, status, 1)
	require.NotNil(t, status[0].LastSend)
	assert.Equal(t, models.SyncOutcomeFailed, status[0].LastSend.Outcome)
	assert.Equal(t, "connection reset", status[0].LastSend.Error)
}

func TestSyncWriteSendsWholeCollection(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestSync(remote)

	require.NoError(t, svc.Write(context.Background(), models.CollectionStudents, []models.Record{{"nisn": "1"}, {"nisn": "2"}}))

	sends := remote.sends()
	require.Len(t, sends, 1)
	assert.Equal(t, "Students", sends[0].Sheet)
	assert.Len(t, sends[0].Data, 2)
}

func TestSyncAsyncWrite(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestSync(remote)
	svc.EnableAsync(jobs.QueueConfig{Workers: 1, BufferSize: 4})
	svc.Start(context.Background())

	require.NoError(t, svc.Write(context.Background(), models.CollectionSettings, []models.Record{{"key": "k", "value": "v"}}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Flush(ctx))
	svc.Stop(ctx)

	require.Len(t, remote.sends(), 1)
	status := svc.Status()
	require.Len(t, status, 1)
	assert.Equal(t, models.SyncOutcomeOK, status[0].LastSend.Outcome)
}

// slowRemote delays every send so writes are still queued when shutdown starts.
type slowRemote struct {
	*fakeRemote
	delay time.Duration
}

func (r slowRemote) Send(ctx context.Context, sheet string, data interface{}) error {
	time.Sleep(r.delay)
	return r.fakeRemote.Send(ctx, sheet, data)
}

func TestSyncStopDrainsQueueAfterStartContextCancelled(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newTestSync(slowRemote{fakeRemote: remote, delay: 20 * time.Millisecond})
	svc.EnableAsync(jobs.QueueConfig{Workers: 1, BufferSize: 8})

	runCtx, shutdown := context.WithCancel(context.Background())
	svc.Start(runCtx)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Write(context.Background(), models.CollectionStudents, []models.Record{{"nisn": fmt.Sprint(i)}}))
	}
	shutdown()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	svc.Stop(stopCtx)

	assert.Len(t, remote.sends(), 5)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSyncWithoutRemoteUsesCache(t *testing.T) {
	svc, _ := newTestSync(nil)
	ctx := context.Background()

	require.NoError(t, svc.Write(ctx, models.CollectionUsers, []models.Record{{"id": "u1"}}))
	records, err := svc.Read(ctx, models.CollectionUsers)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
