package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

type fakeUpstream struct {
	calls int
	err   error
}

func (f *fakeUpstream) Weather(_ context.Context, lat, lon float64) (map[string]any, error) {
	f.calls++
	return map[string]any{"lat": lat, "lon": lon}, f.err
}

func (f *fakeUpstream) ConvertCurrency(_ context.Context, have, want string, amount float64) (map[string]any, error) {
	f.calls++
	return map[string]any{"have": have, "want": want, "amount": amount}, f.err
}

type body struct {
	Message string            `json:"message"`
	Data    map[string]any    `json:"data"`
	Error   map[string]string `json:"error"`
}

func serve(t *testing.T, h gin.HandlerFunc, target string) (*httptest.ResponseRecorder, body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var b body
	_ = json.Unmarshal(w.Body.Bytes(), &b)
	return w, b
}

func TestUpstream_Weather(t *testing.T) {
	fake := &fakeUpstream{}
	h := NewUpstreamHandler(fake, helpers.NewDiscardLogger())

	w, b := serve(t, h.Weather, "/x?lat=-8.65&lon=115.2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -8.65, b.Data["lat"])

	w, b = serve(t, h.Weather, "/x?lat=91&lon=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, b.Error, "lat")

	w, b = serve(t, h.Weather, "/x?lat=1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "is required", b.Error["lon"])

	w, b = serve(t, h.Weather, "/x?lat=abc&lon=1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "must be a number", b.Error["lat"])
	assert.Equal(t, 1, fake.calls)
}

func TestUpstream_Currency(t *testing.T) {
	fake := &fakeUpstream{}
	h := NewUpstreamHandler(fake, helpers.NewDiscardLogger())

	w, b := serve(t, h.Currency, "/x?have=usd&want=EUR&amount=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USD", b.Data["have"])

	w, b = serve(t, h.Currency, "/x?have=US&want=EUR&amount=10")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, b.Error, "have")

	w, b = serve(t, h.Currency, "/x?have=USD&want=EUR&amount=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, b.Error, "amount")
}

func TestUpstream_Failure(t *testing.T) {
	fake := &fakeUpstream{err: fmt.Errorf("%w: boom", entity.ErrUpstreamUnavailable)}
	h := NewUpstreamHandler(fake, helpers.NewDiscardLogger())

	w, b := serve(t, h.Weather, "/x?lat=0&lon=0")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream unavailable", b.Message)
}

func TestRespondError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{entity.MissingRequiredField("hotel"), http.StatusBadRequest, "validation failed"},
		{application.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{application.ErrForbidden, http.StatusForbidden, "forbidden"},
		{application.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{fmt.Errorf("get: %w", entity.ErrNotFound), http.StatusNotFound, "not found"},
		{entity.DuplicateKey("create hotels", nil), http.StatusConflict, "duplicate key"},
		{application.ErrStorageDisabled, http.StatusServiceUnavailable, application.ErrStorageDisabled.Error()},
		{errors.New("connection reset by peer"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			err := tc.err
			w, b := serve(t, func(c *gin.Context) { respondError(c, helpers.NewDiscardLogger(), err) }, "/x")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.msg, b.Message)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}
