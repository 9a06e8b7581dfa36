package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/tutti/adapters/events"
	"github.com/layer-3/tutti/adapters/hasher"
	"github.com/layer-3/tutti/adapters/metrics"
	"github.com/layer-3/tutti/adapters/store"
	"github.com/layer-3/tutti/adapters/tokenizer"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	store  *store.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tk, err := tokenizer.NewJWTTokenizer("test-secret", time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewPrometheusRecorder(reg)
	require.NoError(t, err)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	log := logger.NewNop()
	dir := store.NewMemoryStore(store.DefaultInstruments...)
	authSvc := service.NewAuthService(tk, hasher.NewPBKDF2Hasher(), dir, events.NewWatermillPublisher(pubSub, ""), recorder, log)

	router := SetupRouter(RouterConfig{
		Auth:      authSvc,
		Directory: service.NewDirectoryService(dir, log),
		Cookie:    CookieConfig{Name: "token", Secure: true},
		Recorder:  recorder,
		Gatherer:  reg,
		Logger:    log,
	})
	return &testServer{router: router, store: dir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func signUp(t *testing.T, s *testServer, email, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]string](t, w)["token"]
}

func TestAuthScenario(t *testing.T) {
	s := newTestServer(t)

	// signup
	w := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "a@b.com", "password": "pw1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[map[string]string](t, w)["token"]
	require.NotEmpty(t, token)

	cookie := w.Result().Cookies()
	require.Len(t, cookie, 1)
	assert.Equal(t, "token", cookie[0].Name)
	assert.Equal(t, token, cookie[0].Value)
	assert.True(t, cookie[0].HttpOnly)
	assert.True(t, cookie[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie[0].SameSite)
	assert.Equal(t, int(time.Hour.Seconds()), cookie[0].MaxAge)

	// duplicate signup
	w = s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "a@b.com", "password": "pw1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// login
	w = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@b.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, w.Code)
	token = decode[map[string]string](t, w)["token"]

	w = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@b.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "nobody@b.com", "password": "pw1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// protected endpoint
	w = s.do(t, http.MethodGet, "/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/v1/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]string](t, w)
	assert.Equal(t, "a@b.com", profile["email"])
	user, err := s.store.FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile["sub"])

	// no-op password reset
	w = s.do(t, http.MethodPut, "/v1/auth/password", token, gin.H{"currentPassword": "pw1", "newPassword": "pw1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/v1/auth/password", token, gin.H{"currentPassword": "nope", "newPassword": "pw2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPut, "/v1/auth/password", token, gin.H{"currentPassword": "pw1", "newPassword": "pw2"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@b.com", "password": "pw2"})
	assert.Equal(t, http.StatusOK, w.Code)

	// me never exposes the credential
	w = s.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), user.Credential)
	assert.NotContains(t, w.Body.String(), "credential")
}

func TestAuth_CookieCredential(t *testing.T) {
	s := newTestServer(t)
	token := signUp(t, s, "a@b.com", "pw1")

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuth_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "not-an-email", "password": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersRoutes(t *testing.T) {
	s := newTestServer(t)
	token := signUp(t, s, "a@b.com", "pw1")
	user, err := s.store.FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/v1/users/"+user.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "credential")

	w = s.do(t, http.MethodGet, "/v1/users/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/v1/users/7d0c3a9e-8c3f-4a55-9b8e-0f4f1f6b1c2d", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/v1/users", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodPut, "/v1/users", token, gin.H{})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPut, "/v1/users", token, gin.H{"fullName": "Ada", "newsletterOptIn": true})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[map[string]any](t, w)
	assert.Equal(t, "Ada", updated["fullName"])
	assert.NotNil(t, updated["newsletterOptInAt"])

	w = s.do(t, http.MethodPut, "/v1/users", token, gin.H{"birthDate": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// deleting the account revokes its tokens
	w = s.do(t, http.MethodDelete, "/v1/users", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/v1/auth/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInstrumentRoutes(t *testing.T) {
	s := newTestServer(t)
	token := signUp(t, s, "a@b.com", "pw1")

	w := s.do(t, http.MethodGet, "/v1/instruments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	catalog := decode[struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
		Total int `json:"total"`
	}](t, w)
	require.Equal(t, len(store.DefaultInstruments), catalog.Total)
	instrumentID := catalog.Data[0].ID

	w = s.do(t, http.MethodPost, "/v1/user-instruments", token, gin.H{
		"instrumentId": instrumentID,
		"experience":   "5y",
		"description":  "section player",
		"genre":        []string{"baroque", "jazz"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/user-instruments", token, gin.H{
		"instrumentId": instrumentID,
		"experience":   "5y",
		"description":  "section player",
		"genre":        []string{"baroque"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/v1/user-instruments/"+instrumentID, token, gin.H{"experience": "10y"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"OK"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/v1/user-instruments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Data []struct {
			Experience string `json:"experience"`
		} `json:"data"`
		Length int `json:"length"`
	}](t, w)
	require.Equal(t, 1, list.Length)
	assert.Equal(t, "10y", list.Data[0].Experience)

	w = s.do(t, http.MethodDelete, "/v1/user-instruments/"+instrumentID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/v1/user-instruments/"+instrumentID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodDelete, "/v1/user-instruments/bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnsembleRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := signUp(t, s, "a@b.com", "pw1")
	other := signUp(t, s, "c@d.com", "pw1")

	body := gin.H{
		"name":               "Tutti",
		"imageUrl":           "https://example.com/tutti.png",
		"description":        "community orchestra",
		"website":            "https://example.com",
		"zip_code":           "10115",
		"city":               "Berlin",
		"active_musicians":   "10-24",
		"practice_frequency": "weekly",
		"ensemble_type":      []string{"continuous"},
		"genre":              []string{"symphonic"},
	}

	invalid := gin.H{}
	for k, v := range body {
		invalid[k] = v
	}
	invalid["practice_frequency"] = "hourly"
	w := s.do(t, http.MethodPost, "/v1/ensembles", admin, invalid)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/ensembles", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	w = s.do(t, http.MethodGet, "/v1/ensembles/"+id, other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]any](t, w)
	assert.Equal(t, "Tutti", view["name"])
	adminProfile, ok := view["admin"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", adminProfile["email"])

	w = s.do(t, http.MethodPut, "/v1/ensembles/"+id, other, gin.H{"city": "Hamburg"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/v1/ensembles/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, "/v1/ensembles/"+id, admin, gin.H{"city": "Hamburg"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hamburg", decode[map[string]any](t, w)["city"])

	w = s.do(t, http.MethodDelete, "/v1/ensembles/"+id, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/v1/ensembles/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperationalRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	s.do(t, http.MethodGet, "/v1/auth/profile", "", nil)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `tutti_auth_guard_decisions_total{result="missing credential"} 1`)
}

func TestAuth_SignUpTermsAcceptance(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "a@b.com", "password": "pw1", "acceptedToc": false})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Contains(t, body["fields"], "acceptedToc")

	w = s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "a@b.com", "password": "pw1", "acceptedToc": true})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUsersRoutes_ProfileEdgeCases(t *testing.T) {
	s := newTestServer(t)
	token := signUp(t, s, "a@b.com", "pw1")

	w := s.do(t, http.MethodPut, "/v1/users", token, gin.H{"fullName": "Ada"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/v1/users", token, gin.H{"fullName": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	user, err := s.store.FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FullName)

	// chunked requests carry no length
	req := httptest.NewRequest(http.MethodPut, "/v1/users", strings.NewReader(""))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEnsembleRoutes_List(t *testing.T) {
	s := newTestServer(t)
	token := signUp(t, s, "a@b.com", "pw1")

	w := s.do(t, http.MethodGet, "/v1/ensembles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, e := range []struct{ name, city string }{
		{"Tutti Strings", "Berlin"},
		{"Tutti Brass", "Hamburg"},
		{"Chamber Friends", "Berlin"},
	} {
		w := s.do(t, http.MethodPost, "/v1/ensembles", token, gin.H{
			"name":               e.name,
			"imageUrl":           "https://example.com/e.png",
			"description":        "",
			"website":            "https://example.com",
			"zip_code":           "",
			"city":               e.city,
			"active_musicians":   "5-9",
			"practice_frequency": "weekly",
			"ensemble_type":      []string{"continuous"},
			"genre":              []string{},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	type listing struct {
		Data []struct {
			Name string `json:"name"`
			City string `json:"city"`
		} `json:"data"`
		Length int `json:"length"`
		Total  int `json:"total"`
	}

	w = s.do(t, http.MethodGet, "/v1/ensembles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[listing](t, w)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 3, all.Length)

	w = s.do(t, http.MethodGet, "/v1/ensembles?name=tutti&city=berlin", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[listing](t, w)
	require.Len(t, found.Data, 1)
	assert.Equal(t, "Tutti Strings", found.Data[0].Name)
	assert.Equal(t, 1, found.Total)

	w = s.do(t, http.MethodGet, "/v1/ensembles?limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	limited := decode[listing](t, w)
	assert.Equal(t, 2, limited.Length)
	assert.Equal(t, 3, limited.Total)

	w = s.do(t, http.MethodGet, "/v1/ensembles?city=Vienna", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"length":0,"total":0}`, w.Body.String())

	for _, bad := range []string{"limit=abc", "limit=-1", "limit=1000"} {
		w = s.do(t, http.MethodGet, "/v1/ensembles?"+bad, token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}
