package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/shared"
)

func preflight(t *testing.T, svc *Services) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodOptions, "/api/catalog", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rr := httptest.NewRecorder()
	SetupRoutes(svc).ServeHTTP(rr, req)
	return rr
}

func TestCORSCredentials(t *testing.T) {
	origins := []string{"http://localhost:3000"}

	t.Run("Enabled", func(t *testing.T) {
		svc := &Services{
			Catalog: catalog.Default(),
			CORS:    shared.CORSConfig{AllowedOrigins: origins, AllowCredentials: true},
		}

		assert.True(t, corsOptions(svc).AllowCredentials)
		rr := preflight(t, svc)
		assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Disabled", func(t *testing.T) {
		svc := &Services{
			Catalog: catalog.Default(),
			CORS:    shared.CORSConfig{AllowedOrigins: origins, AllowCredentials: false},
		}

		assert.False(t, corsOptions(svc).AllowCredentials)
		rr := preflight(t, svc)
		assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
	})
}
