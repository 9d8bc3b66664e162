package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/internal/interface/middleware"
	"github.com/oksasatya/tripdesk/pkg/response"
)

// EntityHandler serves one schema-described resource. The same handler type
// is mounted once per schema.
type EntityHandler struct {
	Svc    *application.EntityService
	Logger *logrus.Logger
}

func NewEntityHandler(svc *application.EntityService, logger *logrus.Logger) *EntityHandler {
	return &EntityHandler{Svc: svc, Logger: logger}
}

func (h *EntityHandler) Create(c *gin.Context) {
	var body map[string]any
	if err := bindJSON(c, &body); err != nil {
		badPayload(c, err)
		return
	}
	rec, err := h.Svc.Create(c.Request.Context(), middleware.CurrentUser(c), body)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, rec, h.Svc.Schema().Name+" created", nil)
}

// List returns the filtered rows, or a single row when ?id= is given.
func (h *EntityHandler) List(c *gin.Context) {
	if raw := c.Query("id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		h.get(c, id)
		return
	}
	params := map[string]string{}
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	filter, err := h.Svc.Schema().ParseFilter(params)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	rows, err := h.Svc.List(c.Request.Context(), middleware.CurrentUser(c), filter)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rows, "ok", gin.H{"count": len(rows)})
}

func (h *EntityHandler) Get(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.get(c, id)
}

func (h *EntityHandler) get(c *gin.Context, id int64) {
	rec, err := h.Svc.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rec, "ok", nil)
}

// Update applies a partial update. The id comes from the path, ?id= or the body.
func (h *EntityHandler) Update(c *gin.Context) {
	var body map[string]any
	if err := bindJSON(c, &body); err != nil {
		badPayload(c, err)
		return
	}
	id, err := resolveID(c, body)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	delete(body, "id")
	rec, err := h.Svc.Update(c.Request.Context(), middleware.CurrentUser(c), id, body)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rec, h.Svc.Schema().Name+" updated", nil)
}

func (h *EntityHandler) Delete(c *gin.Context) {
	var body map[string]any
	if c.Param("id") == "" && c.Query("id") == "" {
		if err := bindJSON(c, &body); err != nil {
			badPayload(c, err)
			return
		}
	}
	id, err := resolveID(c, body)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"id": id}, h.Svc.Schema().Name+" deleted", nil)
}

func (h *EntityHandler) BulkCreate(c *gin.Context) {
	var items []map[string]any
	if err := bindJSON(c, &items); err != nil {
		badPayload(c, err)
		return
	}
	res := h.Svc.BulkCreate(c.Request.Context(), middleware.CurrentUser(c), items)
	response.Success(c, http.StatusOK, res, "bulk create finished", nil)
}

// bindJSON decodes numbers as json.Number so that int columns and ids past
// 2^53 reach the schema exactly.
func bindJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return errors.New("invalid request")
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	return dec.Decode(dst)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &entity.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func resolveID(c *gin.Context, body map[string]any) (int64, error) {
	if raw := c.Param("id"); raw != "" {
		return parseID(raw)
	}
	if raw := c.Query("id"); raw != "" {
		return parseID(raw)
	}
	switch v := body["id"].(type) {
	case json.Number:
		return parseID(v.String())
	case float64:
		return parseID(strconv.FormatFloat(v, 'f', -1, 64))
	case string:
		return parseID(v)
	case nil:
		return 0, entity.MissingRequiredField("id")
	}
	return 0, &entity.ValidationError{Field: "id", Reason: "must be a positive integer"}
}
