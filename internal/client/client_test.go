package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oksasatya/go-user-directory/internal/infrastructure/memory"
	"github.com/oksasatya/go-user-directory/internal/interface/middleware"
	"github.com/oksasatya/go-user-directory/internal/router"
	"github.com/oksasatya/go-user-directory/pkg/validation"
)

// ClientSuite runs the client against the real router over an in-memory store.
type ClientSuite struct {
	suite.Suite
	srv *httptest.Server
	api *APIClient
	ctx context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func (s *ClientSuite) SetupTest() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.Recovery(logger))
	reg := router.NewRegistry(engine)
	router.Install(reg, router.NewUserDeps(memory.NewUserRepository(), nil, logger), router.Options{})
	reg.RegisterAll()

	s.srv = httptest.NewServer(engine)
	s.api = NewAPIClient(s.srv.URL + "/api")
	s.ctx = context.Background()
}

func (s *ClientSuite) TearDownTest() {
	s.srv.Close()
}

func (s *ClientSuite) seed(n int) {
	for i := 0; i < n; i++ {
		_, err := s.api.CreateUser(s.ctx, UserInput{Name: "User", Email: fmt.Sprintf("u%02d@example.com", i), Address: "123 Main St"})
		s.Require().NoError(err)
	}
}

func (s *ClientSuite) TestAPIRoundTrip() {
	u, err := s.api.CreateUser(s.ctx, UserInput{Name: "Jo", Email: "a@b.co", Address: "123 Main St"})
	s.Require().NoError(err)
	s.NotEmpty(u.ID)

	_, err = s.api.CreateUser(s.ctx, UserInput{Name: "Jo", Email: "a@b.co", Address: "123 Main St"})
	s.Equal(http.StatusConflict, StatusOf(err))

	got, err := s.api.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("a@b.co", got.Email)

	name := "Joanna"
	updated, err := s.api.UpdateUser(s.ctx, u.ID, UserPatch{Name: &name})
	s.Require().NoError(err)
	s.Equal("Joanna", updated.Name)
	s.Equal("123 Main St", updated.Address)

	list, err := s.api.ListUsers(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Len(list.Users, 1)
	s.Equal("Users retrieved successfully", list.Message)

	s.Require().NoError(s.api.DeleteUser(s.ctx, u.ID))
	_, err = s.api.GetUser(s.ctx, u.ID)
	s.Equal(http.StatusNotFound, StatusOf(err))

	_, err = s.api.GetUser(s.ctx, "bad-format-id")
	var ae *APIError
	s.Require().ErrorAs(err, &ae)
	s.Equal(http.StatusBadRequest, ae.Status)
	s.Equal("Invalid user ID format", ae.Message)
}

func (s *ClientSuite) TestListViewPaging() {
	s.seed(12)
	view := NewListView(s.api, nil)

	s.Require().NoError(view.Load(s.ctx))
	st := view.Store.State()
	s.Len(st.Users, 10)
	s.Equal(Pagination{Page: 1, Limit: 10, Total: 12, Pages: 2}, st.Pagination)
	s.False(st.Loading)

	moved, err := view.GoTo(s.ctx, 3)
	s.NoError(err)
	s.False(moved)

	moved, err = view.GoTo(s.ctx, 2)
	s.NoError(err)
	s.True(moved)
	s.Len(view.Store.State().Users, 2)
}

func (s *ClientSuite) TestListViewSinglePageDoesNotPage() {
	s.seed(3)
	view := NewListView(s.api, nil)
	s.Require().NoError(view.Load(s.ctx))

	moved, err := view.GoTo(s.ctx, 1)
	s.NoError(err)
	s.False(moved)
}

func (s *ClientSuite) TestDeleteLastRowStepsBack() {
	s.seed(11)
	view := NewListView(s.api, nil)
	s.Require().NoError(view.Load(s.ctx))
	_, err := view.GoTo(s.ctx, 2)
	s.Require().NoError(err)

	st := view.Store.State()
	s.Require().Len(st.Users, 1)

	s.Require().NoError(view.Delete(s.ctx, st.Users[0].ID))
	st = view.Store.State()
	s.Equal(1, st.Pagination.Page)
	s.Len(st.Users, 10)
	s.EqualValues(10, st.Pagination.Total)
}

func (s *ClientSuite) TestDeleteFailureKeepsRow() {
	s.seed(1)
	view := NewListView(s.api, nil)
	s.Require().NoError(view.Load(s.ctx))

	err := view.Delete(s.ctx, "3f9a7d4c-8b1e-4c55-9a0e-2f6d1b7c8e90")
	s.Equal(http.StatusNotFound, StatusOf(err))
	st := view.Store.State()
	s.Len(st.Users, 1)
	s.Equal("User not found", st.Error)
}

func (s *ClientSuite) TestCreateFormLocalValidationSkipsNetwork() {
	form := NewCreateForm(s.api)
	form.SetField(validation.FieldName, "J")
	form.SetField(validation.FieldEmail, "bad")

	_, err := form.Submit(s.ctx)
	s.ErrorIs(err, ErrInvalid)
	errs := form.Errors()
	s.Equal("Name must be at least 2 characters long", errs["name"])
	s.Equal("Please provide a valid email address", errs["email"])
	s.Equal("Address is required", errs["address"])

	form.SetField(validation.FieldName, "Jo")
	s.NotContains(form.Errors(), "name")

	list, err := s.api.ListUsers(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Empty(list.Users)
}

func (s *ClientSuite) TestCreateFormConflictMapsToEmail() {
	s.seed(1)
	form := NewCreateForm(s.api)
	form.SetField("name", "Jo")
	form.SetField("email", " U00@Example.com ")
	form.SetField("address", "123 Main St")

	_, err := form.Submit(s.ctx)
	s.Equal(http.StatusConflict, StatusOf(err))
	s.Equal(map[string]string{"email": "User with this email already exists"}, form.Errors())
	s.Empty(form.Notice())
	s.Equal(" U00@Example.com ", form.Values().Email)
	s.False(form.Submitting())
}

func (s *ClientSuite) TestCreateFormSuccess() {
	form := NewCreateForm(s.api)
	form.SetField("name", " Jo ")
	form.SetField("email", "A@B.CO")
	form.SetField("address", "123 Main St")

	u, err := form.Submit(s.ctx)
	s.Require().NoError(err)
	s.Equal("a@b.co", u.Email)
	s.Equal("User created successfully", form.Notice())
	s.Empty(form.Errors())
}

func (s *ClientSuite) TestEditFormLoadAndSubmit() {
	u, err := s.api.CreateUser(s.ctx, UserInput{Name: "Jo", Email: "a@b.co", Address: "123 Main St"})
	s.Require().NoError(err)

	form := NewEditForm(s.api, u.ID)
	s.Require().NoError(form.Load(s.ctx))
	s.Equal("Jo", form.Values().Name)

	form.SetField("address", "77 New Road")
	updated, err := form.Submit(s.ctx)
	s.Require().NoError(err)
	s.Equal("77 New Road", updated.Address)
	s.Equal("User updated successfully", form.Notice())

	missing := NewEditForm(s.api, "3f9a7d4c-8b1e-4c55-9a0e-2f6d1b7c8e90")
	s.Error(missing.Load(s.ctx))
	s.Equal("User not found", missing.Notice())
}

// blockingServer holds every request until release is closed.
func blockingServer(t *testing.T, status int, body string) (*APIClient, chan struct{}, chan struct{}) {
	t.Helper()
	release := make(chan struct{})
	entered := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewAPIClient(srv.URL), release, entered
}

func TestSubmitGuardRejectsSecondSubmit(t *testing.T) {
	api, release, entered := blockingServer(t, http.StatusInternalServerError, `{"success":false,"message":"Failed to create user"}`)
	form := NewCreateForm(api)
	form.SetField("name", "Jo")
	form.SetField("email", "a@b.co")
	form.SetField("address", "123 Main St")

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = form.Submit(context.Background())
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}
	assert.True(t, form.Submitting())
	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusInternalServerError, StatusOf(firstErr))
	assert.Equal(t, "Failed to create user", form.Notice())
	assert.Empty(t, form.Errors())
	assert.False(t, form.Submitting())
}

func TestDeleteGuardPerRow(t *testing.T) {
	api, release, entered := blockingServer(t, http.StatusOK, `{"success":true,"message":"User deleted successfully"}`)
	view := NewListView(api, nil)

	done := make(chan error, 1)
	go func() { done <- view.Delete(context.Background(), "row-1") }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}
	assert.True(t, view.Deleting("row-1"))
	assert.ErrorIs(t, view.Delete(context.Background(), "row-1"), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, view.Deleting("row-1"))
}

func TestPageFetchGuard(t *testing.T) {
	api, release, entered := blockingServer(t, http.StatusOK,
		`{"success":true,"message":"Users retrieved successfully","data":[],"pagination":{"page":2,"limit":10,"total":25,"pages":3}}`)
	view := NewListView(api, nil)
	view.Store.Dispatch(SetUsers{Pagination: Pagination{Page: 1, Limit: 10, Total: 25, Pages: 3}})

	done := make(chan error, 1)
	go func() {
		_, err := view.GoTo(context.Background(), 2)
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}
	assert.True(t, view.Store.State().Loading)

	moved, err := view.GoTo(context.Background(), 3)
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, moved)
	assert.ErrorIs(t, view.Load(context.Background()), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	st := view.Store.State()
	assert.Equal(t, 2, st.Pagination.Page)
	assert.False(t, st.Loading)
	assert.Len(t, entered, 0)
}

func TestAPIErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewAPIClient(srv.URL).ListUsers(context.Background(), 1, 10)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Equal(t, "Bad Gateway", ae.Message)
}

func TestDefaultTimeout(t *testing.T) {
	assert.Equal(t, 10*time.Second, NewAPIClient("http://x").HTTP.Timeout)
	hc := &http.Client{Timeout: time.Second}
	assert.Same(t, hc, NewAPIClient("http://x/", WithHTTPClient(hc)).HTTP)
	assert.Equal(t, "http://x", NewAPIClient("http://x/").BaseURL)
}
