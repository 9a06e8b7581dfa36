package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/service"
)

// DirectoryHandlers serves users, instruments and ensembles
type DirectoryHandlers struct {
	dir *service.DirectoryService
	log *logger.Logger
}

// NewDirectoryHandlers creates new directory handlers
func NewDirectoryHandlers(dir *service.DirectoryService, log *logger.Logger) *DirectoryHandlers {
	return &DirectoryHandlers{dir: dir, log: log}
}

// caller returns the authenticated subject or aborts with 401
func caller(c *gin.Context) (string, bool) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return id.Subject, true
}

// uuidParam returns a path parameter or aborts with 400 when it is not a uuid
func uuidParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if err := validateUUIDParam(name, value); err != nil {
		writeValidationError(c, err)
		return "", false
	}
	return value, true
}

// GetUser returns the public profile of a member
func (h *DirectoryHandlers) GetUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.dir.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser changes the caller's profile
func (h *DirectoryHandlers) UpdateUser(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			c.Status(http.StatusNoContent)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(c, err)
		return
	}
	update := req.ProfileUpdate()
	if update.Empty() {
		c.Status(http.StatusNoContent)
		return
	}

	user, err := h.dir.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes the caller's account
func (h *DirectoryHandlers) DeleteUser(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	if err := h.dir.DeleteUser(c.Request.Context(), userID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListInstruments returns the instrument catalog
func (h *DirectoryHandlers) ListInstruments(c *gin.Context) {
	list, err := h.dir.ListInstruments(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

// ListUserInstruments returns the caller's instruments
func (h *DirectoryHandlers) ListUserInstruments(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	list, err := h.dir.ListUserInstruments(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "length": len(list)})
}

// CreateUserInstrument declares an instrument for the caller
func (h *DirectoryHandlers) CreateUserInstrument(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	req, ok := bind(c, UserInstrumentRequest.ValidateCreate)
	if !ok {
		return
	}

	ui, err := h.dir.AddUserInstrument(c.Request.Context(), userID, req.UserInstrument())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ui)
}

// UpdateUserInstrument changes one of the caller's instruments
func (h *DirectoryHandlers) UpdateUserInstrument(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	instrumentID, ok := uuidParam(c, "instrumentId")
	if !ok {
		return
	}
	req, ok := bind(c, UserInstrumentRequest.ValidateUpdate)
	if !ok {
		return
	}

	if err := h.dir.UpdateUserInstrument(c.Request.Context(), userID, instrumentID, req.Update()); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}

// DeleteUserInstrument removes one of the caller's instruments
func (h *DirectoryHandlers) DeleteUserInstrument(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	instrumentID, ok := uuidParam(c, "instrumentId")
	if !ok {
		return
	}

	if err := h.dir.RemoveUserInstrument(c.Request.Context(), userID, instrumentID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}

// CreateEnsemble creates an ensemble administered by the caller
func (h *DirectoryHandlers) CreateEnsemble(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	req, ok := bind(c, EnsembleRequest.ValidateCreate)
	if !ok {
		return
	}

	e, err := h.dir.CreateEnsemble(c.Request.Context(), userID, req.Ensemble())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ListEnsembles searches active ensembles by name and city
func (h *DirectoryHandlers) ListEnsembles(c *gin.Context) {
	var q EnsembleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := q.Validate(); err != nil {
		writeValidationError(c, err)
		return
	}

	page, err := h.dir.ListEnsembles(c.Request.Context(), q.Filter())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   page.Ensembles,
		"length": len(page.Ensembles),
		"total":  page.Total,
	})
}

// GetEnsemble returns an ensemble with its admin
func (h *DirectoryHandlers) GetEnsemble(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	view, err := h.dir.GetEnsemble(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateEnsemble changes an ensemble the caller administers
func (h *DirectoryHandlers) UpdateEnsemble(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req, ok := bind(c, EnsembleRequest.ValidateUpdate)
	if !ok {
		return
	}

	e, err := h.dir.UpdateEnsemble(c.Request.Context(), userID, id, req.Update())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// DeleteEnsemble deactivates an ensemble the caller administers
func (h *DirectoryHandlers) DeleteEnsemble(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	e, err := h.dir.DeleteEnsemble(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
