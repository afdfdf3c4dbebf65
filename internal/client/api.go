// Package client is a Go consumer of the user directory API. It carries the
// list and form behaviour of the browser front-end so it can be driven from
// CLIs, tests or other services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

const DefaultTimeout = 10 * time.Second

// APIError is returned for every non-2xx answer.
type APIError struct {
	Status  int
	Message string
	Errors  []apperror.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type UserList struct {
	Users      []entity.User
	Pagination Pagination
	Message    string
}

type UserInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// UserPatch sends only the non-nil fields.
type UserPatch struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

type envelope struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	Data       json.RawMessage       `json:"data"`
	Errors     []apperror.FieldError `json:"errors"`
	Pagination *Pagination           `json:"pagination"`
}

type APIClient struct {
	BaseURL string
	HTTP    *http.Client
}

type Option func(*APIClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) { c.HTTP = hc }
}

// NewAPIClient targets baseURL, which includes the /api prefix.
func NewAPIClient(baseURL string, opts ...Option) *APIClient {
	c := &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	var env envelope
	decodeErr := json.NewDecoder(res.Body).Decode(&env)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return nil, &APIError{Status: res.StatusCode, Message: msg, Errors: env.Errors}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", method, path, decodeErr)
	}
	return &env, nil
}

func decodeUser(env *envelope) (*entity.User, error) {
	var u entity.User
	if err := json.Unmarshal(env.Data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (c *APIClient) CreateUser(ctx context.Context, in UserInput) (*entity.User, error) {
	env, err := c.do(ctx, http.MethodPost, "/user", in)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

func (c *APIClient) ListUsers(ctx context.Context, page, limit int) (*UserList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	env, err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	out := &UserList{Users: []entity.User{}, Message: env.Message}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &out.Users); err != nil {
			return nil, fmt.Errorf("decode users: %w", err)
		}
	}
	if env.Pagination != nil {
		out.Pagination = *env.Pagination
	}
	return out, nil
}

func (c *APIClient) GetUser(ctx context.Context, id string) (*entity.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/user/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

func (c *APIClient) UpdateUser(ctx context.Context, id string, patch UserPatch) (*entity.User, error) {
	env, err := c.do(ctx, http.MethodPut, "/update/user/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

func (c *APIClient) DeleteUser(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/delete/user/"+url.PathEscape(id), nil)
	return err
}
