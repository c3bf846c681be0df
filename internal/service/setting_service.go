package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

// SettingService manages the Settings sheet, including the chunked certificate background.
type SettingService struct {
	sync      *SyncService
	logger    *zap.Logger
	chunkSize int
}

// NewSettingService constructs a SettingService.
func NewSettingService(sync *SyncService, logger *zap.Logger) *SettingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingService{sync: sync, logger: logger, chunkSize: models.CertBackgroundChunkSize}
}

// List returns every setting except certificate background fragments.
func (s *SettingService) List(ctx context.Context) ([]models.SettingItem, error) {
	items, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.SettingItem, 0, len(items))
	for _, item := range items {
		if isCertBackgroundKey(item.Key) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// Set upserts a single key.
func (s *SettingService) Set(ctx context.Context, key, value string) (*models.SettingItem, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "setting key is required")
	}
	if isCertBackgroundKey(key) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "certificate background is managed separately")
	}
	item := models.SettingItem{Key: key, Value: value}

	unlock := s.sync.Lock(models.CollectionSettings)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionSettings)
	if err != nil {
		return nil, err
	}
	rows := decodeRows(records, normalizeSetting, s.logger, models.CollectionSettings)
	rows = upsertRow(rows, item, settingKey)
	if err := s.persist(ctx, rows); err != nil {
		return nil, err
	}
	return &item, nil
}

// CertificateBackground reassembles the stored background. The second return
// value is false when nothing is stored.
func (s *SettingService) CertificateBackground(ctx context.Context) (string, bool, error) {
	items, err := s.readAll(ctx)
	if err != nil {
		return "", false, err
	}
	value, ok := joinChunks(items)
	return value, ok, nil
}

// SaveCertificateBackground replaces every previous background fragment with
// the chunks of dataURL. The current sheet is fetched first so fragments
// written from another device are purged too.
func (s *SettingService) SaveCertificateBackground(ctx context.Context, dataURL string) error {
	unlock := s.sync.Lock(models.CollectionSettings)
	defer unlock()

	records, err := s.sync.Read(ctx, models.CollectionSettings)
	if err != nil {
		return err
	}
	rows := decodeRows(records, normalizeSetting, s.logger, models.CollectionSettings)
	rows = removeRows(rows, func(item models.SettingItem) bool { return isCertBackgroundKey(item.Key) })

	chunks := splitChunks(dataURL, s.chunkSize)
	for i, chunk := range chunks {
		rows = append(rows, row[models.SettingItem]{value: models.SettingItem{
			Key:   models.CertBackgroundChunkPrefix + strconv.Itoa(i),
			Value: chunk,
		}})
	}

	if err := s.persist(ctx, rows); err != nil {
		return err
	}
	s.logger.Info("certificate background saved", zap.Int("chunks", len(chunks)), zap.Int("length", len(dataURL)))
	return nil
}

func (s *SettingService) readAll(ctx context.Context) ([]models.SettingItem, error) {
	records, err := s.sync.Read(ctx, models.CollectionSettings)
	if err != nil {
		return nil, err
	}
	return rowValues(decodeRows(records, normalizeSetting, s.logger, models.CollectionSettings)), nil
}

func (s *SettingService) persist(ctx context.Context, rows []row[models.SettingItem]) error {
	records, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return s.sync.Write(ctx, models.CollectionSettings, records)
}

// splitChunks cuts value into pieces of at most size characters.
func splitChunks(value string, size int) []string {
	runes := []rune(value)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// joinChunks concatenates chunk entries by ascending index, falling back to
// the single legacy key. Chunks with an unreadable index sort last.
func joinChunks(items []models.SettingItem) (string, bool) {
	type indexed struct {
		index int
		value string
	}
	var chunks []indexed
	legacy, hasLegacy := "", false
	for _, item := range items {
		if strings.HasPrefix(item.Key, models.CertBackgroundChunkPrefix) {
			idx, err := strconv.Atoi(strings.TrimPrefix(item.Key, models.CertBackgroundChunkPrefix))
			if err != nil {
				idx = int(^uint(0) >> 1)
			}
			chunks = append(chunks, indexed{index: idx, value: item.Value})
			continue
		}
		if item.Key == models.CertBackgroundKey && !hasLegacy {
			legacy, hasLegacy = item.Value, true
		}
	}

	if len(chunks) > 0 {
		sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })
		var b strings.Builder
		for _, c := range chunks {
			b.WriteString(c.value)
		}
		return b.String(), true
	}
	if hasLegacy && legacy != "" {
		return legacy, true
	}
	return "", false
}

func isCertBackgroundKey(key string) bool {
	return key == models.CertBackgroundKey || strings.HasPrefix(key, models.CertBackgroundChunkPrefix)
}

func normalizeSetting(item models.SettingItem) models.SettingItem {
	item.Key = strings.TrimSpace(item.Key)
	return item
}

func settingKey(item models.SettingItem) string { return item.Key }
