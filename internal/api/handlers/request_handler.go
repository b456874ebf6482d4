// internal/api/handlers/request_handler.go
package handlers

import (
	"net/http"

	"part-request-portal-api-server/internal/api/middleware"
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/requests"
	"part-request-portal-api-server/internal/session"
	"part-request-portal-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RequestHandler struct {
	Controller *requests.Controller
	Sessions   session.Store
	Hub        *socket.Hub
	Logger     *zap.Logger
}

type CreateRequestResponse struct {
	ID       string          `json:"id"`
	Identity models.Identity `json:"identity"`
}

type SetStatusRequest struct {
	Status models.RequestStatus `json:"status" binding:"required"`
}

// identity is always present behind Authenticate.
func identity(c *gin.Context) models.Identity {
	id, _ := middleware.GetIdentity(c)
	return id
}

// CreateRequest creates a pending request. A submitter's first request pins
// the session scope and moves the session's open sockets onto it.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var in requests.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := h.Controller.Create(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}

	current := created.Identity
	if created.Pinned {
		sessionID := middleware.GetSessionID(c)
		sess, err := h.Sessions.PinScope(c.Request.Context(), sessionID, created.Identity.RegistrationNumber)
		if err != nil {
			// The request exists; only the session update failed.
			h.Logger.Error("Failed to pin session scope",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		} else {
			current = sess.Identity
			h.Hub.Rescope(sessionID, current)
		}
	}

	c.JSON(http.StatusCreated, CreateRequestResponse{ID: created.ID, Identity: current})
}

// ListRequests returns the caller's visible list once.
func (h *RequestHandler) ListRequests(c *gin.Context) {
	list, err := h.Controller.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	view, err := h.Controller.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateRequest applies a partial edit. Fields absent from the body are kept.
// Like every mutation, the result reaches callers through their live feed.
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	var u requests.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.Controller.Edit(c.Request.Context(), identity(c), c.Param("id"), u); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	if err := h.Controller.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.Controller.SetStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) FinalizeRequest(c *gin.Context) {
	if err := h.Controller.Finalize(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchRequests filters the administrator list by ?q=.
func (h *RequestHandler) SearchRequests(c *gin.Context) {
	list, err := h.Controller.Search(c.Request.Context(), identity(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
