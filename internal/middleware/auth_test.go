package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shakthivel10/FSND/internal/services"
	"github.com/shakthivel10/FSND/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) Authorize(ctx context.Context, authHeader, requiredPermission string) (services.ClaimSet, error) {
	args := m.Called(authHeader, requiredPermission)
	claims, _ := args.Get(0).(services.ClaimSet)
	return claims, args.Error(1)
}

func newAuthRouter(authorizer Authorizer, permission string) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/drinks-detail", RequiresAuth(authorizer, permission), func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject(), "token_id": c.GetString(TokenSubjectKey)})
	})
	return router
}

func TestRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		authHeader     string
		claims         services.ClaimSet
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Authorized",
			authHeader:     "Bearer good",
			claims:         services.ClaimSet{"sub": "auth0|barista"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"sub":"auth0|barista","token_id":"auth0|barista"}`,
		},
		{
			name:           "Missing Authorization Header",
			authHeader:     "",
			err:            &services.AuthError{Status: http.StatusUnauthorized, Code: services.CodeNoHeader},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success":false,"error":401,"message":"no_header"}`,
		},
		{
			name:           "Missing Permission",
			authHeader:     "Bearer customer",
			err:            &services.AuthError{Status: http.StatusForbidden, Code: services.CodeUnauthorized},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"success":false,"error":403,"message":"unauthorized"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authorizer := new(mockAuthorizer)
			authorizer.On("Authorize", tt.authHeader, "get:drinks-detail").Return(tt.claims, tt.err)
			router := newAuthRouter(authorizer, "get:drinks-detail")

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/drinks-detail", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			authorizer.AssertExpectations(t)
		})
	}
}

func TestRequiresAuthWithTokenAuthorizer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	kp := testutils.NewKeyPair(t, "key-1")
	server := testutils.NewJWKSServer(t, kp)
	authorizer, err := services.NewTokenAuthorizer(services.NewKeySet(server.URL), services.AuthorizerConfig{
		Issuer:   testutils.TestIssuer,
		Audience: testutils.TestAudience,
	})
	require.NoError(t, err)
	router := newAuthRouter(authorizer, "get:drinks-detail")

	do := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/drinks-detail", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		return w
	}

	w := do("Bearer " + kp.Sign(t, testutils.Claims("get:drinks-detail")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do("Bearer " + kp.Sign(t, testutils.Claims("get:drinks")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do("")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "no_header", body.Message)
}
