package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/interface/middleware"
	"github.com/oksasatya/tripdesk/pkg/response"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// Register is public. Only an authenticated admin may choose the role.
func (h *UserHandler) Register(c *gin.Context) {
	var req application.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if !middleware.CurrentUser(c).IsAdmin() {
		req.Role = ""
	}
	u, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, u.Map(), "user created", nil)
}

// Me returns the acting user as stored now.
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), middleware.CurrentUser(c).UID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u.Map(), "ok", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req application.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u.Map(), "user updated", nil)
}

type uidRequest struct {
	UID string `json:"uid" binding:"required"`
}

func (h *UserHandler) Delete(c *gin.Context) {
	var req uidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), middleware.CurrentUser(c), req.UID); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": req.UID}, "user deleted", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, users, "ok", gin.H{"count": len(users)})
}

// BulkCreate decodes the array without struct validation so that one bad item
// is reported in the result instead of rejecting the batch.
func (h *UserHandler) BulkCreate(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		badPayload(c, err)
		return
	}
	var items []application.RegisterInput
	if err := json.Unmarshal(raw, &items); err != nil {
		badPayload(c, err)
		return
	}
	res := h.Svc.BulkCreate(c.Request.Context(), items)
	response.Success(c, http.StatusOK, res, "bulk create finished", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	out, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, out, "ok", gin.H{"count": len(out)})
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	uid := c.Param("uid")
	if err := h.Svc.ResetPassword(c.Request.Context(), middleware.CurrentUser(c), uid); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": uid}, "password reset", nil)
}

type documentRequest struct {
	UID  string         `json:"uid"`
	Data map[string]any `json:"data"`
}

// GetDocument and PutDocument serve /grade_data and /apexam.
func (h *UserHandler) GetDocument(doc application.Document) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := h.Svc.GetDocument(c.Request.Context(), middleware.CurrentUser(c), c.Query("uid"), doc)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		response.Success(c, http.StatusOK, out, "ok", nil)
	}
}

func (h *UserHandler) PutDocument(doc application.Document) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req documentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badPayload(c, err)
			return
		}
		uid := req.UID
		if uid == "" {
			uid = c.Query("uid")
		}
		out, err := h.Svc.SetDocument(c.Request.Context(), middleware.CurrentUser(c), uid, doc, req.Data)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		response.Success(c, http.StatusOK, out, "saved", nil)
	}
}

func (h *UserHandler) UploadPfp(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "validation failed", gin.H{"file": "is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadPfp(c.Request.Context(), middleware.CurrentUser(c), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"pfp": url}, "profile picture updated", nil)
}

func (h *UserHandler) ClearPfp(c *gin.Context) {
	if err := h.Svc.ClearPfp(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"pfp": ""}, "profile picture cleared", nil)
}
