package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func wsTokenContext(t *testing.T, target, authHeader string) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		c.Request.Header.Set(AuthHeaderKey, authHeader)
	}
	return c
}

func TestWSTokenSources(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		authHeader string
		want       string
	}{
		{"bearer header", "/ws", "Bearer header-token", "header-token"},
		{"query parameter", "/ws?token=query-token", "", "query-token"},
		{"bearer header wins over query", "/ws?token=query-token", "Bearer header-token", "header-token"},
		{"non-bearer header falls back to query", "/ws?token=query-token", "Basic dXNlcjpwYXNz", "query-token"},
		{"nothing", "/ws", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := wsTokenContext(t, tt.target, tt.authHeader)
			assert.Equal(t, tt.want, wsToken(c))
		})
	}
}
