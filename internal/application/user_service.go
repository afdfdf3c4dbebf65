package application

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	repo "github.com/oksasatya/go-user-directory/internal/domain/repository"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
	"github.com/oksasatya/go-user-directory/pkg/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	MaxSearchSize     = 50
	DefaultSearchSize = 10

	MsgValidationFailed = "Validation failed"
	MsgUserExists       = "User with this email already exists"
	MsgEmailExists      = "Email already exists"
	MsgUserNotFound     = "User not found"
)

// UserIndexer mirrors users into a search backend. Optional.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]entity.User, error)
}

type Service struct {
	Repo    repo.UserRepository
	Indexer UserIndexer
	Logger  *logrus.Logger
}

func NewService(repo repo.UserRepository, indexer UserIndexer, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{Repo: repo, Indexer: indexer, Logger: logger}
}

type CreateUserInput struct {
	Name    string
	Email   string
	Address string
}

// UpdateUserInput carries a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Name    *string
	Email   *string
	Address *string
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type UserPage struct {
	Users      []entity.User
	Pagination Pagination
}

// PageCount is ceil(total/limit).
func PageCount(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// unexpected logs err and returns the generic Unexpected error for op. Errors
// that are already tagged pass through unchanged.
func (s *Service) unexpected(err error, op string, fields logrus.Fields) error {
	if ae, ok := apperror.As(err); ok && ae.Kind != apperror.KindUnexpected {
		return err
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["op"] = op
	s.Logger.WithError(err).WithFields(fields).Error("user store failure")
	return apperror.Wrap(err, apperror.KindUnexpected, op)
}

func checkID(id string) (string, error) {
	canonical, ok := validation.CanonicalID(id)
	if !ok {
		return "", apperror.MalformedID(validation.MsgInvalidID)
	}
	return canonical, nil
}

func (s *Service) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	clean, errs := validation.ValidateUser(validation.UserFields{Name: in.Name, Email: in.Email, Address: in.Address})
	if len(errs) > 0 {
		return nil, apperror.Validation(MsgValidationFailed, errs)
	}

	if _, err := s.Repo.GetByEmail(ctx, clean.Email); err == nil {
		return nil, apperror.Conflict(MsgUserExists)
	} else if !apperror.Is(err, apperror.KindNotFound) {
		return nil, s.unexpected(err, "create user", logrus.Fields{"email": clean.Email})
	}

	u := &entity.User{Name: clean.Name, Email: clean.Email, Address: clean.Address}
	if err := s.Repo.Create(ctx, u); err != nil {
		// a concurrent create may have won the unique index
		if apperror.Is(err, apperror.KindConflict) {
			return nil, apperror.Conflict(MsgUserExists)
		}
		return nil, s.unexpected(err, "create user", logrus.Fields{"email": clean.Email})
	}

	s.index(ctx, u)
	s.Logger.WithField("user_id", u.ID).Info("user created")
	return u, nil
}

func (s *Service) List(ctx context.Context, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	total, err := s.Repo.Count(ctx)
	if err != nil {
		return nil, s.unexpected(err, "count users", nil)
	}
	pages := PageCount(total, limit)

	users := []entity.User{}
	// Pages past the end are empty without a query, so a huge page never
	// builds an overflowing offset.
	if page <= pages {
		users, err = s.Repo.List(ctx, (page-1)*limit, limit)
		if err != nil {
			return nil, s.unexpected(err, "list users", logrus.Fields{"page": page, "limit": limit})
		}
		if users == nil {
			users = []entity.User{}
		}
	}
	return &UserPage{
		Users: users,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*entity.User, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.NotFound(MsgUserNotFound)
		}
		return nil, s.unexpected(err, "get user", logrus.Fields{"user_id": id})
	}
	return u, nil
}

// Update applies the present fields of in. An update that leaves every value
// unchanged still succeeds and refreshes updatedAt.
func (s *Service) Update(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	patch, errs := validation.ValidatePatch(validation.UserPatch{Name: in.Name, Email: in.Email, Address: in.Address})
	if len(errs) > 0 {
		return nil, apperror.Validation(MsgValidationFailed, errs)
	}

	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.NotFound(MsgUserNotFound)
		}
		return nil, s.unexpected(err, "update user", logrus.Fields{"user_id": id})
	}

	if patch.Email != nil && *patch.Email != u.Email {
		other, err := s.Repo.GetByEmail(ctx, *patch.Email)
		switch {
		case err == nil && other.ID != u.ID:
			return nil, apperror.Conflict(MsgEmailExists)
		case err != nil && !apperror.Is(err, apperror.KindNotFound):
			return nil, s.unexpected(err, "update user", logrus.Fields{"user_id": id})
		}
	}

	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Address != nil {
		u.Address = *patch.Address
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindConflict:
			return nil, apperror.Conflict(MsgEmailExists)
		case apperror.KindNotFound:
			return nil, apperror.NotFound(MsgUserNotFound)
		}
		return nil, s.unexpected(err, "update user", logrus.Fields{"user_id": id})
	}

	s.index(ctx, u)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id, err := checkID(id)
	if err != nil {
		return err
	}
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return apperror.NotFound(MsgUserNotFound)
		}
		return s.unexpected(err, "delete user", logrus.Fields{"user_id": id})
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return apperror.NotFound(MsgUserNotFound)
		}
		return s.unexpected(err, "delete user", logrus.Fields{"user_id": id})
	}

	if s.Indexer != nil {
		if err := s.Indexer.Remove(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("search index remove failed")
		}
	}
	s.Logger.WithField("user_id", id).Info("user deleted")
	return nil
}

// Search queries the search index. Without an index it returns no results.
func (s *Service) Search(ctx context.Context, q string, size int) ([]entity.User, error) {
	q = strings.TrimSpace(q)
	if s.Indexer == nil || q == "" {
		return []entity.User{}, nil
	}
	if size <= 0 || size > MaxSearchSize {
		size = DefaultSearchSize
	}
	users, err := s.Indexer.Search(ctx, q, size)
	if err != nil {
		return nil, s.unexpected(err, "search users", logrus.Fields{"q": q})
	}
	return users, nil
}

func (s *Service) index(ctx context.Context, u *entity.User) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.Index(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("search index update failed")
	}
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}
