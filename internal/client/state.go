package client

import (
	"sync"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
)

// ListState is everything the user list screen renders from.
type ListState struct {
	Users       []entity.User
	CurrentUser *entity.User
	Loading     bool
	Error       string
	Pagination  Pagination
}

func InitialListState() ListState {
	return ListState{
		Users:      []entity.User{},
		Pagination: Pagination{Page: 1, Limit: 10},
	}
}

// Action is a state transition understood by Reduce.
type Action interface{ isAction() }

type SetLoading struct{ Loading bool }

type SetUsers struct {
	Users      []entity.User
	Pagination Pagination
}

// UserAdded prepends a freshly created user.
type UserAdded struct{ User entity.User }

type UserUpdated struct{ User entity.User }

type UserDeleted struct{ ID string }

// SetError sets or, with "", clears the error banner.
type SetError struct{ Message string }

type SetCurrentUser struct{ User *entity.User }

func (SetLoading) isAction()     {}
func (SetUsers) isAction()       {}
func (UserAdded) isAction()      {}
func (UserUpdated) isAction()    {}
func (UserDeleted) isAction()    {}
func (SetError) isAction()       {}
func (SetCurrentUser) isAction() {}

// Reduce returns the state after a. It never mutates s.
func Reduce(s ListState, a Action) ListState {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading

	case SetUsers:
		s.Users = append([]entity.User{}, a.Users...)
		s.Pagination = a.Pagination
		s.Error = ""

	case UserAdded:
		users := make([]entity.User, 0, len(s.Users)+1)
		users = append(users, a.User)
		s.Users = append(users, s.Users...)
		s.Pagination.Total++

	case UserUpdated:
		users := make([]entity.User, len(s.Users))
		for i, u := range s.Users {
			if u.ID == a.User.ID {
				u = a.User
			}
			users[i] = u
		}
		s.Users = users
		if s.CurrentUser != nil && s.CurrentUser.ID == a.User.ID {
			u := a.User
			s.CurrentUser = &u
		}

	case UserDeleted:
		users := make([]entity.User, 0, len(s.Users))
		for _, u := range s.Users {
			if u.ID != a.ID {
				users = append(users, u)
			}
		}
		s.Users = users
		if s.Pagination.Total > 0 {
			s.Pagination.Total--
		}

	case SetError:
		s.Error = a.Message

	case SetCurrentUser:
		s.CurrentUser = a.User
	}
	return s
}

// Store serializes dispatches to one ListState.
type Store struct {
	mu    sync.RWMutex
	state ListState
}

func NewStore() *Store { return &Store{state: InitialListState()} }

func (s *Store) Dispatch(actions ...Action) ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	return s.state
}

func (s *Store) State() ListState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
