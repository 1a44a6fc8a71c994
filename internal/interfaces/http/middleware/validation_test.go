package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	type adjustRequest struct {
		WarehouseID string `json:"warehouse_id" binding:"required,uuid"`
		Reason      string `json:"reason" binding:"required,min=3"`
	}

	router := gin.New()
	router.POST("/probe", func(c *gin.Context) {
		var req adjustRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	send := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/probe", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("reports each failing field", func(t *testing.T) {
		w := send(`{"warehouse_id": "not-a-uuid", "reason": "x"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Len(t, resp.Error.Details, 2)
	})

	t.Run("missing required field rejected", func(t *testing.T) {
		w := send(`{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		w := send(`{"warehouse_id": "0e4cf96a-8c3e-4f3e-9d44-111111111111", "reason": "cycle count"}`)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFieldErrorMessage(t *testing.T) {
	type probe struct {
		Required string `binding:"required"`
		Email    string `binding:"email"`
		Min      string `binding:"min=5"`
		Max      string `binding:"max=10"`
		UUID     string `binding:"uuid"`
		OneOf    string `binding:"oneof=ADJUST TRANSFER RECEIPT"`
		URL      string `binding:"url"`
	}

	v := validator.New()
	v.SetTagName("binding")
	err := v.Struct(probe{Email: "x", Min: "ab", Max: "far far too long", UUID: "x", OneOf: "DELETE", URL: "x"})
	require.Error(t, err)

	wantByField := map[string]string{
		"Required": "This field",
		"Email":    "Invalid ema",
		"Min":      "Must be at",
		"Max":      "Must be at",
		"UUID":     "Invalid UUI",
		"OneOf":    "Must be on",
		"URL":      "Invalid URL",
	}

	for _, e := range err.(validator.ValidationErrors) {
		want, ok := wantByField[e.Field()]
		require.True(t, ok, "unexpected field %s", e.Field())
		assert.Contains(t, fieldErrorMessage(e), want)
	}
}
