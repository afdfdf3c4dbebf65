package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-user-directory/internal/application"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
	"github.com/oksasatya/go-user-directory/pkg/response"
	"github.com/oksasatya/go-user-directory/pkg/validation"
)

const (
	msgCreated   = "User created successfully"
	msgListed    = "Users retrieved successfully"
	msgNoUsers   = "No users found"
	msgRetrieved = "User retrieved successfully"
	msgUpdated   = "User updated successfully"
	msgDeleted   = "User deleted successfully"
	msgSearched  = "Search completed"

	msgCreateFailed = "Failed to create user"
	msgListFailed   = "Failed to retrieve users"
	msgGetFailed    = "Failed to retrieve user"
	msgUpdateFailed = "Failed to update user"
	msgDeleteFailed = "Failed to delete user"
	msgSearchFailed = "Failed to search users"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// updateUserRequest uses pointers so absent keys stay distinguishable from "".
type updateUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,max=100"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

// bindBody decodes the JSON body into dst. An empty body leaves dst zeroed so
// the field rules report what is missing.
func bindBody(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, userapp.MsgValidationFailed, validation.ToDetails(err))
		return false
	}
	return true
}

// writeError maps a service error onto the envelope. Anything untagged or
// unexpected becomes a 500 carrying only the operation's generic message.
func (h *UserHandler) writeError(c *gin.Context, err error, fallback string) {
	ae, ok := apperror.As(err)
	if !ok || ae.Kind == apperror.KindUnexpected {
		if !ok {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(fallback)
		}
		response.Error(c, http.StatusInternalServerError, fallback, nil)
		return
	}
	response.Error(c, apperror.HTTPStatus(ae.Kind), ae.Message, ae.Fields)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindBody(c, &req) {
		return
	}
	u, err := h.Svc.Create(c.Request.Context(), userapp.CreateUserInput{Name: req.Name, Email: req.Email, Address: req.Address})
	if err != nil {
		h.writeError(c, err, msgCreateFailed)
		return
	}
	response.Success(c, http.StatusCreated, u, msgCreated)
}

func (h *UserHandler) List(c *gin.Context) {
	page := queryInt(c, "page", userapp.DefaultPage)
	limit := queryInt(c, "limit", userapp.DefaultLimit)

	res, err := h.Svc.List(c.Request.Context(), page, limit)
	if err != nil {
		h.writeError(c, err, msgListFailed)
		return
	}
	msg := msgListed
	if len(res.Users) == 0 {
		msg = msgNoUsers
	}
	response.Paginated(c, res.Users, msg, res.Pagination)
}

func (h *UserHandler) GetByID(c *gin.Context) {
	u, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, msgGetFailed)
		return
	}
	response.Success(c, http.StatusOK, u, msgRetrieved)
}

func (h *UserHandler) Update(c *gin.Context) {
	// reject a bad id before looking at the body
	if !validation.IsValidID(c.Param("id")) {
		response.Error(c, http.StatusBadRequest, validation.MsgInvalidID, nil)
		return
	}
	var req updateUserRequest
	if !bindBody(c, &req) {
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), c.Param("id"), userapp.UpdateUserInput{Name: req.Name, Email: req.Email, Address: req.Address})
	if err != nil {
		h.writeError(c, err, msgUpdateFailed)
		return
	}
	response.Success(c, http.StatusOK, u, msgUpdated)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, msgDeleteFailed)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msgDeleted)
}

func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, userapp.MsgValidationFailed, validation.ToDetails(err))
		return
	}
	users, err := h.Svc.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.writeError(c, err, msgSearchFailed)
		return
	}
	response.Success(c, http.StatusOK, users, msgSearched)
}
