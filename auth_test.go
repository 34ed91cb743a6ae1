package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

// setupAuthTest mounts a handler behind authMiddleware that echoes user_id.
func setupAuthTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{jwtSecret: testSecret, tokenTTL: time.Hour}
	router := gin.New()
	router.GET("/api/ping", h.authMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt("user_id")})
	})
	return router
}

func doAuthRequest(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/api/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := issueToken(testSecret, time.Hour, 42, time.Now())
	require.NoError(t, err)

	userID, err := parseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestParseToken_Rejects(t *testing.T) {
	expired, err := issueToken(testSecret, time.Hour, 1, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = parseToken(testSecret, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	otherKey, err := issueToken([]byte("other"), time.Hour, 1, time.Now())
	require.NoError(t, err)
	_, err = parseToken(testSecret, otherKey)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)
	_, err = parseToken(testSecret, noSubject)
	assert.Error(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString(testSecret)
	require.NoError(t, err)
	_, err = parseToken(testSecret, noExpiry)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	router := setupAuthTest()
	valid, err := issueToken(testSecret, time.Hour, 7, time.Now())
	require.NoError(t, err)

	w := doAuthRequest(router, "Bearer "+valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Token " + valid,
		"garbage":    "Bearer not-a-jwt",
	} {
		w := doAuthRequest(router, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}

func TestValidateRegistration(t *testing.T) {
	ok := registerRequest{Username: "anna", Email: "anna@example.com", Password: "correct-horse"}
	assert.NoError(t, validateRegistration(ok))

	short := ok
	short.Username = "an"
	assert.Error(t, validateRegistration(short))

	badEmail := ok
	badEmail.Email = "anna"
	assert.Error(t, validateRegistration(badEmail))

	weak := ok
	weak.Password = "1234"
	assert.Error(t, validateRegistration(weak))

	emailLike := ok
	emailLike.Username = "bob@example.com"
	assert.Error(t, validateRegistration(emailLike))
}

func TestLoginQuery(t *testing.T) {
	sql, args := loginQuery("  Anna@Example.com ")
	assert.Equal(t, "SELECT * FROM users WHERE email = @email", sql)
	assert.Equal(t, "anna@example.com", args["email"])
	assert.NotContains(t, sql, "username")

	sql, args = loginQuery(" anna ")
	assert.Equal(t, "SELECT * FROM users WHERE username = @username", sql)
	assert.Equal(t, "anna", args["username"])
	assert.NotContains(t, sql, "email")
}
