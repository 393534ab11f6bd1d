package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	httpapi "github.com/bobasync/api/internal/http"
	"github.com/bobasync/api/internal/log"
	"github.com/bobasync/api/internal/oauth"
	"github.com/bobasync/api/internal/queue"
	"github.com/bobasync/api/internal/repo"
)

const testSecret = "test_secret"

type testEnv struct {
	T      *testing.T
	Ctx    context.Context
	Mongo  *mongodb.MongoDBContainer
	Store  *repo.Store
	Router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	mc, err := mongodb.RunContainer(ctx,
		testcontainers.WithImage("mongo:6"),
	)
	if err != nil {
		t.Fatalf("mongo container: %v", err)
	}

	uri, err := mc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo uri: %v", err)
	}

	if _, err := log.Init(false); err != nil {
		t.Fatalf("log init: %v", err)
	}

	store, err := repo.NewStore(ctx, uri, "bobasync_test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}

	google := oauth.NewVerifier("test-client", "http://127.0.0.1:0/jwks", time.Minute)
	calendar := oauth.CalendarConfig("test-client", "test-secret", "http://localhost/oauth/callback")

	// Redis nil -> rate limiting passes through; Noop publisher
	h := httpapi.NewHandler(store, testSecret, nil, 0, google, calendar, queue.NewNoop(), true)

	gin.SetMode(gin.TestMode)
	r := httpapi.NewRouter(h, "*")

	return &testEnv{T: t, Ctx: ctx, Mongo: mc, Store: store, Router: r}
}

func (e *testEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Client.Disconnect(e.Ctx)
	}
	if e.Mongo != nil {
		_ = e.Mongo.Terminate(e.Ctx)
	}
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

// register creates an account and returns (user id, bearer token).
func (e *testEnv) register(name, email, password string) (string, string) {
	e.T.Helper()
	w := e.do("POST", "/api/auth/register",
		`{"name":"`+name+`","email":"`+email+`","password":"`+password+`"}`, "")
	if w.Code != 201 {
		e.T.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		e.T.Fatalf("register resp: %v", err)
	}
	if resp.User.ID == "" || resp.Token == "" {
		e.T.Fatalf("register resp missing fields: %s", w.Body.String())
	}
	return resp.User.ID, resp.Token
}
