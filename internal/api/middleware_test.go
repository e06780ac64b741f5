package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRespondServiceError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondServiceError(c, err)
	return w
}

func TestRespondServiceErrorMatchesWrappedSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"wrapped unauthorized", fmt.Errorf("%w: token audience mismatch", models.ErrUnauthorized), http.StatusUnauthorized},
		{"bare unauthorized", models.ErrUnauthorized, http.StatusUnauthorized},
		{"wrapped not found", fmt.Errorf("loading order: %w", models.ErrNotFound), http.StatusNotFound},
		{"wrapped variant mismatch", fmt.Errorf("%w: variant 7, product 3", models.ErrVariantMismatch), http.StatusBadRequest},
		{"invalid credentials", models.ErrInvalidCredentials, http.StatusUnauthorized},
		{"email taken", models.ErrEmailTaken, http.StatusBadRequest},
		{"invalid transition", fmt.Errorf("shipping: %w", models.ErrInvalidTransition), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := callRespondServiceError(tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRespondServiceErrorUnwrapsOutOfStock(t *testing.T) {
	oos := &models.OutOfStockError{Lines: []models.OutOfStockLine{
		{ProductID: 1, VariantID: 2, Requested: 3, AvailableStock: 1},
	}}
	w := callRespondServiceError(fmt.Errorf("placing order: %w", oos))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error struct {
			Message    string                  `json:"message"`
			OutOfStock []models.OutOfStockLine `json:"outOfStock"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient stock", resp.Error.Message)
	require.Len(t, resp.Error.OutOfStock, 1)
	assert.Equal(t, int64(2), resp.Error.OutOfStock[0].VariantID)
}

func TestRespondServiceErrorHidesInternalDetail(t *testing.T) {
	w := callRespondServiceError(errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal error", resp["error"])
}
