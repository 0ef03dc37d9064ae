package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "123"}}

	id, ok := parseIDParam(c, "id")

	assert.True(t, ok)
	assert.Equal(t, uint(123), id)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseIDParam_Invalid(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "0"} {
		t.Run(raw, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: raw}}

			id, ok := parseIDParam(c, "id")

			assert.False(t, ok)
			assert.Zero(t, id)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid id")
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", defaultPageLimit, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=1000", maxPageLimit, 0},
		{"?limit=-3&offset=-1", defaultPageLimit, 0},
		{"?limit=abc", defaultPageLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)

			limit, offset := parsePagination(c)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestParseOptionalBool(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	v, ok := parseOptionalBool(c, "featured")
	assert.True(t, ok)
	assert.Nil(t, v)

	c.Request = httptest.NewRequest(http.MethodGet, "/?featured=true", nil)
	v, ok = parseOptionalBool(c, "featured")
	assert.True(t, ok)
	require.NotNil(t, v)
	assert.True(t, *v)

	w := httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?featured=maybe", nil)
	_, ok = parseOptionalBool(c, "featured")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate review", &library.DuplicateReviewError{UserID: 1, BookID: 2, ExistingID: 7}, http.StatusConflict, CodeDuplicateReview},
		{"validation", library.Invalid("rating", "must be between 1 and 5"), http.StatusBadRequest, CodeValidation},
		{"wrapped not found", fmt.Errorf("load: %w", library.NotFound("book", 9)), http.StatusNotFound, CodeNotFound},
		{"forbidden", library.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondDomainError(c, tt.err, "test")

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotContains(t, body.Error, "disk on fire")
		})
	}
}

func TestRespondDomainError_DuplicateCarriesExistingID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondDomainError(c, &library.DuplicateReviewError{UserID: 1, BookID: 2, ExistingID: 7}, "test")

	var body struct {
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body.Details["existing_review_id"])
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := newPaginatedResponse([]int{1, 2}, 5, 2, 2)
	assert.True(t, resp.HasMore)

	resp = newPaginatedResponse([]int{5}, 5, 2, 4)
	assert.False(t, resp.HasMore)
}
