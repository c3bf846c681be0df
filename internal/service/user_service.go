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

// UserService manages accounts in the Users sheet and guarantees the reserved administrator.
type UserService struct {
	sync      *SyncService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(sync *SyncService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{sync: sync, validator: validate, logger: logger}
}

// List returns every account, with the reserved administrator first when the
// sheet does not carry one.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	records, err := s.sync.Read(ctx, models.CollectionUsers)
	if err != nil {
		return nil, err
	}
	rows := withReservedAdmin(decodeRows(records, normalizeUser, s.logger, models.CollectionUsers))
	return rowValues(rows), nil
}

// FindByUsername looks an account up by its login name.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

// Save creates or replaces an account by id.
func (s *UserService) Save(ctx context.Context, req models.UpsertUserRequest) (*models.User, error) {
	req.Role = models.UserRole(strings.ToLower(strings.TrimSpace(string(req.Role))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	user := normalizeUser(models.User{
		ID:         strings.TrimSpace(req.ID),
		Username:   strings.TrimSpace(req.Username),
		Password:   req.Password,
		Name:       strings.TrimSpace(req.Name),
		Role:       req.Role,
		ClassGrade: req.ClassGrade,
	})
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	unlock := s.sync.Lock(models.CollectionUsers)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionUsers)
	if err != nil {
		return nil, err
	}
	rows := withReservedAdmin(decodeRows(records, normalizeUser, s.logger, models.CollectionUsers))
	rows = upsertRow(rows, user, userKey)

	if err := s.persist(ctx, rows); err != nil {
		return nil, err
	}
	s.logger.Info("user saved", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &user, nil
}

// Delete removes an account. Deleting the reserved administrator is a no-op.
func (s *UserService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == models.ReservedAdminID {
		s.logger.Info("ignored delete of reserved administrator")
		return nil
	}

	unlock := s.sync.Lock(models.CollectionUsers)
	defer unlock()

	records, err := s.sync.ReadCached(ctx, models.CollectionUsers)
	if err != nil {
		return err
	}
	rows := decodeRows(records, normalizeUser, s.logger, models.CollectionUsers)
	rows = removeRows(rows, func(u models.User) bool { return u.ID == id })
	return s.persist(ctx, withReservedAdmin(rows))
}

func (s *UserService) persist(ctx context.Context, rows []row[models.User]) error {
	records, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return s.sync.Write(ctx, models.CollectionUsers, records)
}

func withReservedAdmin(rows []row[models.User]) []row[models.User] {
	for _, r := range rows {
		if r.value.IsReservedAdmin() {
			return rows
		}
	}
	return append([]row[models.User]{{value: models.ReservedAdmin()}}, rows...)
}

func normalizeUser(u models.User) models.User {
	u.Role = models.UserRole(strings.ToLower(strings.TrimSpace(string(u.Role))))
	return u
}

func userKey(u models.User) string { return u.ID }
