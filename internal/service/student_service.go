package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

// StudentService manages the Students sheet, keyed by NISN.
type StudentService struct {
	sync      *SyncService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(sync *SyncService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{sync: sync, validator: validate, logger: logger}
}

// List returns students, optionally limited to one class grade.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	records, err := s.sync.Read(ctx, models.CollectionStudents)
	if err != nil {
		return nil, err
	}
	students := rowValues(decodeRows(records, normalizeStudent, s.logger, models.CollectionStudents))
	if filter.ClassGrade == "" {
		return students, nil
	}
	grade := strings.TrimSpace(filter.ClassGrade)
	filtered := make([]models.Student, 0, len(students))
	for _, st := range students {
		if st.ClassGrade == grade {
			filtered = append(filtered, st)
		}
	}
	return filtered, nil
}

// Get returns the student with the given NISN.
func (s *StudentService) Get(ctx context.Context, nisn string) (*models.Student, error) {
	students, err := s.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, err
	}
	nisn = strings.TrimSpace(nisn)
	for i := range students {
		if students[i].NISN == nisn {
			return &students[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// Save upserts one student.
func (s *StudentService) Save(ctx context.Context, student models.Student) (*models.Student, error) {
	saved, err := s.SaveBulk(ctx, []models.Student{student})
	if err != nil {
		return nil, err
	}
	return &saved[0], nil
}

// SaveBulk merges students by NISN: existing rows keep their position and are
// overwritten, unknown NISNs are appended in input order.
func (s *StudentService) SaveBulk(ctx context.Context, students []models.Student) ([]models.Student, error) {
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no students provided")
	}
	normalized := make([]models.Student, 0, len(students))
	for _, st := range students {
		st = normalizeStudent(st)
		if err := s.validator.Struct(st); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		normalized = append(normalized, st)
	}

	unlock := s.sync.Lock(models.CollectionStudents)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionStudents)
	if err != nil {
		return nil, err
	}
	rows := decodeRows(records, normalizeStudent, s.logger, models.CollectionStudents)
	for _, st := range normalized {
		rows = upsertRow(rows, st, studentKey)
	}

	if err := s.persist(ctx, rows); err != nil {
		return nil, err
	}
	s.logger.Info("students saved", zap.Int("count", len(normalized)))
	return normalized, nil
}

// Delete removes the student with the given NISN.
func (s *StudentService) Delete(ctx context.Context, nisn string) error {
	nisn = strings.TrimSpace(nisn)

	unlock := s.sync.Lock(models.CollectionStudents)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionStudents)
	if err != nil {
		return err
	}
	rows := decodeRows(records, normalizeStudent, s.logger, models.CollectionStudents)
	rows = removeRows(rows, func(st models.Student) bool { return st.NISN == nisn })
	return s.persist(ctx, rows)
}

func (s *StudentService) persist(ctx context.Context, rows []row[models.Student]) error {
	records, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return s.sync.Write(ctx, models.CollectionStudents, records)
}

func normalizeStudent(st models.Student) models.Student {
	st.NISN = strings.TrimSpace(st.NISN)
	st.ClassGrade = strings.TrimSpace(st.ClassGrade)
	return st
}

func studentKey(st models.Student) string { return st.NISN }
