package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

// MaterialService manages reading materials.
type MaterialService struct {
	sync      *SyncService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs a MaterialService.
func NewMaterialService(sync *SyncService, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{sync: sync, validator: validate, logger: logger}
}

// List returns materials, optionally for a single class grade.
func (s *MaterialService) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error) {
	records, err := s.sync.Read(ctx, models.CollectionMaterials)
	if err != nil {
		return nil, err
	}
	materials := rowValues(decodeRows(records, normalizeMaterial, s.logger, models.CollectionMaterials))
	if filter.ClassGrade == "" {
		return materials, nil
	}
	grade := strings.TrimSpace(filter.ClassGrade)
	filtered := make([]models.Material, 0, len(materials))
	for _, m := range materials {
		if m.ClassGrade == grade {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// Get returns a single material.
func (s *MaterialService) Get(ctx context.Context, id string) (*models.Material, error) {
	materials, err := s.List(ctx, models.MaterialFilter{})
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	for i := range materials {
		if materials[i].ID == id {
			return &materials[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
}

// Save creates or replaces a material by id.
func (s *MaterialService) Save(ctx context.Context, material models.Material) (*models.Material, error) {
	material = normalizeMaterial(material)
	if err := s.validator.Struct(material); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if material.ID == "" {
		material.ID = uuid.NewString()
	}

	unlock := s.sync.Lock(models.CollectionMaterials)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionMaterials)
	if err != nil {
		return nil, err
	}
	rows := decodeRows(records, normalizeMaterial, s.logger, models.CollectionMaterials)
	rows = upsertRow(rows, material, materialKey)

	if err := s.persist(ctx, rows); err != nil {
		return nil, err
	}
	s.logger.Info("material saved", zap.String("material_id", material.ID))
	return &material, nil
}

// Delete removes a material.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	unlock := s.sync.Lock(models.CollectionMaterials)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionMaterials)
	if err != nil {
		return err
	}
	rows := decodeRows(records, normalizeMaterial, s.logger, models.CollectionMaterials)
	rows = removeRows(rows, func(m models.Material) bool { return m.ID == id })
	return s.persist(ctx, rows)
}

func (s *MaterialService) persist(ctx context.Context, rows []row[models.Material]) error {
	records, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return s.sync.Write(ctx, models.CollectionMaterials, records)
}

func normalizeMaterial(m models.Material) models.Material {
	m.ID = strings.TrimSpace(m.ID)
	m.ClassGrade = strings.TrimSpace(m.ClassGrade)
	if m.MediaType == "" {
		m.MediaType = models.MediaNone
	}
	if m.Questions == nil {
		m.Questions = []models.Question{}
	}
	if m.Tasks == nil {
		m.Tasks = []models.Task{}
	}
	return m
}

func materialKey(m models.Material) string { return m.ID }
