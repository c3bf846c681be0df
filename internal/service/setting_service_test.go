package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

func patterned(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteString(strconv.Itoa(i % 10))
	}
	return b.String()[:n]
}

func TestCertificateBackgroundRoundTrip(t *testing.T) {
	for _, length := range []int{0, 1, 45000, 45001, 200000} {
		t.Run(fmt.Sprintf("len_%d", length), func(t *testing.T) {
			remote := newFakeRemote()
			sync, _ := newTestSync(remote)
			svc := NewSettingService(sync, nil)
			ctx := context.Background()

			value := patterned(length)
			require.NoError(t, svc.SaveCertificateBackground(ctx, value))

			got, ok, err := svc.CertificateBackground(ctx)
			require.NoError(t, err)
			assert.Equal(t, length > 0, ok)
			assert.Equal(t, value, got)

			sends := remote.sends()
			require.Len(t, sends, 1)
			assert.Len(t, sends[0].Data, (length+models.CertBackgroundChunkSize-1)/models.CertBackgroundChunkSize)
		})
	}
}

func TestCertificateBackgroundLegacyKey(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(models.CollectionSettings, []models.Record{{"key": "certBg", "value": "data:image/png;base64,AAAA"}})
	sync, _ := newTestSync(remote)
	svc := NewSettingService(sync, nil)

	got, ok, err := svc.CertificateBackground(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAAA", got)
}

func TestSaveCertificateBackgroundPurgesOldFragments(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(models.CollectionSettings, []models.Record{
		{"key": "schoolName", "value": "SD Senja"},
		{"key": "certBg", "value": "legacy"},
		{"key": "certBg_chunk0", "value": "old0"},
		{"key": "certBg_chunk1", "value": "old1"},
		{"key": "certBg_chunk2", "value": "old2"},
	})
	sync, _ := newTestSync(remote)
	svc := NewSettingService(sync, nil)
	ctx := context.Background()

	require.NoError(t, svc.SaveCertificateBackground(ctx, "new"))

	sends := remote.sends()
	require.Len(t, sends, 1)
	keys := make([]string, 0, len(sends[0].Data))
	for _, rec := range sends[0].Data {
		keys = append(keys, rec["key"].(string))
	}
	assert.Equal(t, []string{"schoolName", "certBg_chunk0"}, keys)

	got, ok, err := svc.CertificateBackground(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestJoinChunksOrdersByIndex(t *testing.T) {
	got, ok := joinChunks([]models.SettingItem{
		{Key: "certBg_chunk10", Value: "K"},
		{Key: "certBg_chunkX", Value: "?"},
		{Key: "certBg_chunk2", Value: "C"},
		{Key: "certBg_chunk0", Value: "A"},
		{Key: "certBg_chunk1", Value: "B"},
		{Key: "certBg", Value: "legacy"},
	})
	assert.True(t, ok)
	assert.Equal(t, "ABCK?", got)

	_, ok = joinChunks([]models.SettingItem{{Key: "certBg", Value: ""}})
	assert.False(t, ok)
}

func TestSettingServiceListAndSet(t *testing.T) {
	remote := newFakeRemote()
	remote.seed(models.CollectionSettings, []models.Record{
		{"key": "schoolName", "value": "SD Senja"},
		{"key": "certBg_chunk0", "value": "data"},
	})
	sync, _ := newTestSync(remote)
	svc := NewSettingService(sync, nil)
	ctx := context.Background()

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SettingItem{{Key: "schoolName", Value: "SD Senja"}}, items)

	_, err = svc.Set(ctx, "schoolName", "SD Senja Literasi")
	require.NoError(t, err)
	_, err = svc.Set(ctx, "academicYear", "2024/2025")
	require.NoError(t, err)

	items, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SettingItem{
		{Key: "schoolName", Value: "SD Senja Literasi"},
		{Key: "academicYear", Value: "2024/2025"},
	}, items)

	got, ok, err := svc.CertificateBackground(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data", got)

	_, err = svc.Set(ctx, "certBg_chunk0", "x")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Set(ctx, " ", "x")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSplitChunksCountsRunes(t *testing.T) {
	chunks := splitChunks("ééé", 2)
	assert.Equal(t, []string{"éé", "é"}, chunks)
	assert.Empty(t, splitChunks("", 2))
}
