package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

type materialLookup interface {
	Get(ctx context.Context, id string) (*models.Material, error)
}

// SubmissionService manages reflection submissions and their review.
type SubmissionService struct {
	sync      *SyncService
	materials materialLookup
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(sync *SyncService, materials materialLookup, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{sync: sync, materials: materials, logger: logger, now: time.Now}
}

// List returns submissions matching the filter.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	records, err := s.sync.Read(ctx, models.CollectionSubmissions)
	if err != nil {
		return nil, err
	}
	subs := rowValues(decodeRows(records, normalizeSubmission, s.logger, models.CollectionSubmissions))

	filtered := make([]models.Submission, 0, len(subs))
	for _, sub := range subs {
		if filter.ClassGrade != "" && sub.ClassGrade != strings.TrimSpace(filter.ClassGrade) {
			continue
		}
		if filter.StudentNISN != "" && sub.StudentNISN != strings.TrimSpace(filter.StudentNISN) {
			continue
		}
		if filter.MaterialID != "" && sub.MaterialID != strings.TrimSpace(filter.MaterialID) {
			continue
		}
		filtered = append(filtered, sub)
	}
	return filtered, nil
}

// ListFor scopes the listing to what actor may see.
func (s *SubmissionService) ListFor(ctx context.Context, actor *models.JWTClaims, filter models.SubmissionFilter) ([]models.Submission, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		filter.ClassGrade = actor.ClassGrade
	default:
		filter.StudentNISN = actor.Username
	}
	return s.List(ctx, filter)
}

// Get returns a submission visible to actor.
func (s *SubmissionService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Submission, error) {
	subs, err := s.List(ctx, models.SubmissionFilter{})
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	for i := range subs {
		if subs[i].ID != id {
			continue
		}
		if !CanAccessSubmission(actor, subs[i]) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another class or student")
		}
		return &subs[i], nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
}

// Save upserts a submission by id.
func (s *SubmissionService) Save(ctx context.Context, sub models.Submission) (*models.Submission, error) {
	sub = normalizeSubmission(sub)
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	unlock := s.sync.Lock(models.CollectionSubmissions)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionSubmissions)
	if err != nil {
		return nil, err
	}
	rows := decodeRows(records, normalizeSubmission, s.logger, models.CollectionSubmissions)
	rows = upsertRow(rows, sub, submissionKey)

	if err := s.persist(ctx, rows); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Submit records a student's answers for a material. A previous submission by
// the same student for the same material is replaced and goes back to review.
func (s *SubmissionService) Submit(ctx context.Context, actor *models.JWTClaims, materialID string, req models.SubmitRequest) (*models.Submission, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit reflections")
	}
	material, err := s.materials.Get(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if material.ClassGrade != strings.TrimSpace(actor.ClassGrade) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "material is assigned to another class")
	}

	existing, err := s.List(ctx, models.SubmissionFilter{StudentNISN: actor.Username, MaterialID: material.ID})
	if err != nil {
		return nil, err
	}

	answers := make([]models.Answer, 0, len(material.Questions))
	for _, q := range material.Questions {
		answers = append(answers, models.Answer{QuestionID: q.ID, Answer: req.Answers[q.ID]})
	}

	sub := models.Submission{
		MaterialID:  material.ID,
		StudentNISN: actor.Username,
		StudentName: actor.Name,
		ClassGrade:  actor.ClassGrade,
		Answers:     answers,
		TaskText:    req.TaskText,
		TaskFileURL: req.TaskFileURL,
		IsApproved:  false,
		SubmittedAt: s.now().UTC().Format(time.RFC3339),
	}
	if len(existing) > 0 {
		sub.ID = existing[0].ID
	}

	saved, err := s.Save(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.logger.Info("submission received",
		zap.String("submission_id", saved.ID),
		zap.String("material_id", saved.MaterialID),
		zap.String("student_nisn", saved.StudentNISN),
	)
	return saved, nil
}

// Review approves or rejects a submission and stores the teacher's notes.
func (s *SubmissionService) Review(ctx context.Context, actor *models.JWTClaims, id string, req models.ReviewRequest) (*models.Submission, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot review submissions")
	}
	sub, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	sub.IsApproved = req.Approved
	sub.TeacherNotes = req.TeacherNotes

	saved, err := s.Save(ctx, *sub)
	if err != nil {
		return nil, err
	}
	s.logger.Info("submission reviewed", zap.String("submission_id", saved.ID), zap.Bool("approved", saved.IsApproved))
	return saved, nil
}

// Delete removes a submission so the student can start over.
func (s *SubmissionService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if actor.Role == models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "students cannot reset submissions")
	}
	sub, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	unlock := s.sync.Lock(models.CollectionSubmissions)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionSubmissions)
	if err != nil {
		return err
	}
	rows := decodeRows(records, normalizeSubmission, s.logger, models.CollectionSubmissions)
	rows = removeRows(rows, func(v models.Submission) bool { return v.ID == sub.ID })
	return s.persist(ctx, rows)
}

func (s *SubmissionService) persist(ctx context.Context, rows []row[models.Submission]) error {
	records, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return s.sync.Write(ctx, models.CollectionSubmissions, records)
}

// CanAccessSubmission applies class and ownership scoping.
func CanAccessSubmission(actor *models.JWTClaims, sub models.Submission) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return sub.ClassGrade == strings.TrimSpace(actor.ClassGrade)
	case models.RoleStudent:
		return sub.StudentNISN == actor.Username
	default:
		return false
	}
}

func normalizeSubmission(sub models.Submission) models.Submission {
	sub.ID = strings.TrimSpace(sub.ID)
	sub.MaterialID = strings.TrimSpace(sub.MaterialID)
	sub.StudentNISN = strings.TrimSpace(sub.StudentNISN)
	sub.ClassGrade = strings.TrimSpace(sub.ClassGrade)
	if sub.Answers == nil {
		sub.Answers = []models.Answer{}
	}
	return sub
}

func submissionKey(sub models.Submission) string { return sub.ID }
