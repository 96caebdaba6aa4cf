package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := repomanager.NewSQLiteRepositoryManager()
	db, err := repomanager.Open(context.Background(), m, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens := auth.NewTokenManager([]byte("access-secret"), []byte("refresh-secret"), time.Minute, time.Hour)
	svc := services.NewUserService(db, m, auth.NewPasswordHasher(bcrypt.MinCost, 2), tokens, logging.Nop())

	srv := httptest.NewServer(hs.NewRouter(svc, logging.Nop(), hs.Options{APIPrefix: "/api/v1/users"}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *UsersClient {
	t.Helper()
	c, err := NewUsersClient(baseURL, 5*time.Second)
	require.NoError(t, err)
	c.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
	}
	return c
}

func TestUsersClient_Flow(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv.URL+"/api/v1/users/")
	ctx := context.Background()

	created, err := c.Register(ctx, "Alice", "a@x.com", []byte("p4ssw0rd!"))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", created.Email)

	_, err = c.Register(ctx, "Alice", "a@x.com", []byte("p4ssw0rd!"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	_, err = c.Me(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(ctx, "a@x.com", []byte("wrong"))
	require.ErrorIs(t, err, ErrUnauthorized)

	logged, err := c.Login(ctx, "a@x.com", []byte("p4ssw0rd!"))
	require.NoError(t, err)
	assert.Equal(t, created, logged)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, created, me)

	refreshed, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, created, refreshed)

	err = c.ChangePassword(ctx, []byte("nope"), []byte("n3w-passw0rd"))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	require.NoError(t, c.ChangePassword(ctx, []byte("p4ssw0rd!"), []byte("n3w-passw0rd")))

	cleared, err := c.Logout(ctx)
	require.NoError(t, err)
	assert.True(t, cleared)

	_, err = c.Me(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)

	cleared, err = c.Logout(ctx)
	require.NoError(t, err)
	assert.False(t, cleared)

	_, err = c.Login(ctx, "a@x.com", []byte("n3w-passw0rd"))
	require.NoError(t, err)
}

func TestUsersClient_RefreshesExpiredAccess(t *testing.T) {
	var meCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if meCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","message":"token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","message":"user profile","data":{"user":{"id":"1","name":"Alice","email":"a@x.com"}}}`))
	})
	mux.HandleFunc("GET /refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_, _ = w.Write([]byte(`{"status":"success","message":"token refreshed","data":{"user":{"id":"1","name":"Alice","email":"a@x.com"},"accessToken":"t"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(t, srv.URL)
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.Name)
	assert.EqualValues(t, 2, meCalls.Load())
	assert.EqualValues(t, 1, refreshCalls.Load())
}

func TestUsersClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url)

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = c.Login(context.Background(), "a@x.com", []byte("x"))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestUsersClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Refresh(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}
