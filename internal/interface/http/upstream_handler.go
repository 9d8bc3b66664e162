package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/pkg/response"
	"github.com/oksasatya/tripdesk/pkg/validation"
)

// UpstreamClient is the external lookup surface; *upstream.NinjasClient implements it.
type UpstreamClient interface {
	Weather(ctx context.Context, lat, lon float64) (map[string]any, error)
	ConvertCurrency(ctx context.Context, have, want string, amount float64) (map[string]any, error)
}

type UpstreamHandler struct {
	Client UpstreamClient
	Logger *logrus.Logger
}

func NewUpstreamHandler(client UpstreamClient, logger *logrus.Logger) *UpstreamHandler {
	return &UpstreamHandler{Client: client, Logger: logger}
}

func (h *UpstreamHandler) Weather(c *gin.Context) {
	lat, err := floatQuery(c, "lat", "min=-90,max=90")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	lon, err := floatQuery(c, "lon", "min=-180,max=180")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	out, err := h.Client.Weather(c.Request.Context(), lat, lon)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, out, "ok", nil)
}

func (h *UpstreamHandler) Currency(c *gin.Context) {
	have := strings.ToUpper(c.Query("have"))
	want := strings.ToUpper(c.Query("want"))
	for _, p := range [][2]string{{"have", have}, {"want", want}} {
		if err := validation.Var(p[1], "required,len=3,alpha"); err != nil {
			respondError(c, h.Logger, &entity.ValidationError{Field: p[0], Reason: err.Error()})
			return
		}
	}
	amount, err := floatQuery(c, "amount", "gt=0")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	out, err := h.Client.ConvertCurrency(c.Request.Context(), have, want, amount)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, out, "ok", nil)
}

func floatQuery(c *gin.Context, name, rules string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, entity.MissingRequiredField(name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &entity.ValidationError{Field: name, Reason: "must be a number"}
	}
	if err := validation.Var(v, rules); err != nil {
		return 0, &entity.ValidationError{Field: name, Reason: err.Error()}
	}
	return v, nil
}
