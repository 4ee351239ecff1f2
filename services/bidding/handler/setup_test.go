package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	model "vehicle-auction/internal/models"
	"vehicle-auction/services/bidding/helpers"
)

var (
	buyer  = &model.Actor{UserID: "user1", Role: model.RoleBuyer}
	seller = &model.Actor{UserID: "seller1", Role: model.RoleSeller}
	admin  = &model.Actor{UserID: "admin1", Role: model.RoleAdmin}
)

// newTestRouter returns a gin engine that authenticates every request as actor.
// A nil actor leaves the request anonymous.
func newTestRouter(actor *model.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	helpers.RegisterValidators()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if actor != nil {
			c.Set(helpers.ContextUserID, actor.UserID)
			c.Set(helpers.ContextRole, string(actor.Role))
		}
		c.Next()
	})
	return router
}

// performRequest sends body (raw string or JSON-encoded value) and decodes the envelope
func performRequest(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// decimalEq matches decimals by value rather than representation
type decimalEq struct {
	want decimal.Decimal
}

func (m decimalEq) Matches(x interface{}) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string {
	return fmt.Sprintf("is decimal %s", m.want)
}
