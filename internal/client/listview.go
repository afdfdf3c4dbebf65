package client

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when the same affordance is triggered again while its
// request is still in flight.
var ErrBusy = errors.New("client: request already in flight")

// ListView drives the paginated user list.
type ListView struct {
	API   *APIClient
	Store *Store

	mu       sync.Mutex
	fetching bool
	deleting map[string]bool
}

func NewListView(api *APIClient, store *Store) *ListView {
	if store == nil {
		store = NewStore()
	}
	return &ListView{API: api, Store: store, deleting: map[string]bool{}}
}

// Load fetches the current page. It returns ErrBusy while another page fetch
// is in flight.
func (v *ListView) Load(ctx context.Context) error {
	p := v.Store.State().Pagination
	return v.fetch(ctx, p.Page, p.Limit)
}

// GoTo loads page when it exists. It reports whether a fetch happened and
// returns ErrBusy while another page fetch is in flight.
func (v *ListView) GoTo(ctx context.Context, page int) (bool, error) {
	p := v.Store.State().Pagination
	if p.Pages <= 1 || page < 1 || page > p.Pages {
		return false, nil
	}
	if err := v.fetch(ctx, page, p.Limit); err != nil {
		return !errors.Is(err, ErrBusy), err
	}
	return true, nil
}

func (v *ListView) fetch(ctx context.Context, page, limit int) error {
	v.mu.Lock()
	if v.fetching {
		v.mu.Unlock()
		return ErrBusy
	}
	v.fetching = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.fetching = false
		v.mu.Unlock()
	}()

	v.Store.Dispatch(SetLoading{Loading: true})
	res, err := v.API.ListUsers(ctx, page, limit)
	if err != nil {
		v.Store.Dispatch(SetError{Message: errorMessage(err, "Failed to fetch users")}, SetLoading{Loading: false})
		return err
	}
	v.Store.Dispatch(SetUsers{Users: res.Users, Pagination: res.Pagination}, SetLoading{Loading: false})
	return nil
}

// Deleting reports whether a delete for id is in flight.
func (v *ListView) Deleting(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deleting[id]
}

// Delete removes id on the server and then locally. When that empties a page
// other than the first, the previous page is loaded.
func (v *ListView) Delete(ctx context.Context, id string) error {
	v.mu.Lock()
	if v.deleting[id] {
		v.mu.Unlock()
		return ErrBusy
	}
	v.deleting[id] = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		delete(v.deleting, id)
		v.mu.Unlock()
	}()

	if err := v.API.DeleteUser(ctx, id); err != nil {
		v.Store.Dispatch(SetError{Message: errorMessage(err, "Failed to delete user")})
		return err
	}

	st := v.Store.Dispatch(UserDeleted{ID: id})
	if len(st.Users) == 0 && st.Pagination.Page > 1 {
		return v.fetch(ctx, st.Pagination.Page-1, st.Pagination.Limit)
	}
	return nil
}

func errorMessage(err error, fallback string) string {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
