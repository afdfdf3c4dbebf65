package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/pkg/validation"
)

// ErrInvalid means the form did not pass local validation; no request was sent.
var ErrInvalid = errors.New("client: form has invalid fields")

const (
	noticeCreated   = "User created successfully"
	noticeUpdated   = "User updated successfully"
	msgEmailTaken   = "User with this email already exists"
	msgCreateFailed = "Failed to add user"
	msgUpdateFailed = "Failed to update user"
	msgLoadFailed   = "Failed to fetch user data"
)

// UserForm backs the add and edit user screens. A non-empty ID makes it an
// edit form.
type UserForm struct {
	API *APIClient
	ID  string

	mu         sync.Mutex
	values     validation.UserFields
	errors     map[string]string
	notice     string
	submitting bool
}

func NewCreateForm(api *APIClient) *UserForm {
	return &UserForm{API: api, errors: map[string]string{}}
}

func NewEditForm(api *APIClient, id string) *UserForm {
	return &UserForm{API: api, ID: id, errors: map[string]string{}}
}

// Load prefills an edit form from the server.
func (f *UserForm) Load(ctx context.Context) error {
	u, err := f.API.GetUser(ctx, f.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.notice = errorMessage(err, msgLoadFailed)
		return err
	}
	f.values = validation.UserFields{Name: u.Name, Email: u.Email, Address: u.Address}
	return nil
}

// SetField updates one input and clears its error.
func (f *UserForm) SetField(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case validation.FieldName:
		f.values.Name = value
	case validation.FieldEmail:
		f.values.Email = value
	case validation.FieldAddress:
		f.values.Address = value
	default:
		return
	}
	delete(f.errors, field)
}

func (f *UserForm) Values() validation.UserFields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Errors returns a copy of the per-field messages.
func (f *UserForm) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Notice is the transient message to show after the last action.
func (f *UserForm) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

func (f *UserForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit validates locally and, when clean, creates or updates the user.
// Server-side failures are mapped onto field errors or the notice; the typed
// values are kept either way.
func (f *UserForm) Submit(ctx context.Context) (*entity.User, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	clean, errs := validation.ValidateUser(f.values)
	if len(errs) > 0 {
		f.errors = make(map[string]string, len(errs))
		for _, e := range errs {
			f.errors[e.Field] = e.Message
		}
		f.mu.Unlock()
		return nil, ErrInvalid
	}
	f.submitting = true
	f.errors = map[string]string{}
	f.notice = ""
	id := f.ID
	f.mu.Unlock()

	var (
		u   *entity.User
		err error
	)
	if id == "" {
		u, err = f.API.CreateUser(ctx, UserInput{Name: clean.Name, Email: clean.Email, Address: clean.Address})
	} else {
		u, err = f.API.UpdateUser(ctx, id, UserPatch{Name: &clean.Name, Email: &clean.Email, Address: &clean.Address})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.applyError(err)
		return nil, err
	}
	if id == "" {
		f.notice = noticeCreated
	} else {
		f.notice = noticeUpdated
	}
	return u, nil
}

// applyError must be called with f.mu held.
func (f *UserForm) applyError(err error) {
	var ae *APIError
	switch {
	case errors.As(err, &ae) && ae.Status == http.StatusBadRequest && len(ae.Errors) > 0:
		for _, fe := range ae.Errors {
			f.errors[fe.Field] = fe.Message
		}
	case errors.As(err, &ae) && ae.Status == http.StatusConflict:
		f.errors[validation.FieldEmail] = msgEmailTaken
	default:
		fallback := msgCreateFailed
		if f.ID != "" {
			fallback = msgUpdateFailed
		}
		f.notice = errorMessage(err, fallback)
	}
}
