package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"OmniAgent/internal/config"
	"OmniAgent/internal/initial"
	accountService "OmniAgent/internal/modules/account/application/service"
	accountPersistence "OmniAgent/internal/modules/account/infrastructure/persistence"
	"OmniAgent/internal/modules/knowledge/application/dto/request"
	"OmniAgent/internal/modules/knowledge/application/dto/respond"
	"OmniAgent/pkg/back"
	"OmniAgent/pkg/util/myjwt"
	"OmniAgent/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type emptySources struct{}

func (emptySources) Ingest(context.Context, request.IngestSourceRequest) *respond.IngestResult {
	return &respond.IngestResult{Status: respond.StatusSuccess}
}

func (emptySources) DeleteSource(context.Context, request.DeleteSourceRequest) *respond.DeleteResult {
	return &respond.DeleteResult{Status: respond.StatusSuccess}
}

func (emptySources) ListSources(_ context.Context, req request.ListSourcesRequest) *respond.ListSourcesResult {
	return &respond.ListSourcesResult{Status: respond.StatusSuccess, UserId: req.UserId}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, initial.Migrate(db))

	conf := config.GetConfig()
	return NewRouter(conf, Deps{
		Sources:       emptySources{},
		Accounts:      accountService.NewAccountSyncService(accountPersistence.NewAccountRepository(db)),
		VectorStore:   "milvus",
		MetadataStore: true,
	})
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body any) back.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp back.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func withJwtKey(t *testing.T, key string) {
	t.Helper()
	jc := &config.GetConfig().JwtConfig
	old := *jc
	jc.Key = key
	jc.Issuer = ""
	t.Cleanup(func() { *jc = old })
}

func userToken(t *testing.T, key, userID string) string {
	t.Helper()
	claims := myjwt.Claims{
		UserId:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)
	resp := call(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, xerr.OK, resp.Code)
	assert.Equal(t, "milvus", resp.Data.(map[string]interface{})["vector_store"])
}

func TestAccountRoundTripWithoutAuth(t *testing.T) {
	withJwtKey(t, "")
	r := newTestRouter(t)

	resp := call(t, r, http.MethodPost, "/whatsapp/account/save", "", map[string]string{
		"user_id": "u1", "phone_number": "+100", "jid": "100@s.whatsapp.net",
	})
	require.Equal(t, xerr.OK, resp.Code, resp.Message)

	resp = call(t, r, http.MethodGet, "/whatsapp/account?phone_number=%2B100", "", nil)
	require.Equal(t, xerr.OK, resp.Code, resp.Message)
	assert.Equal(t, "u1", resp.Data.(map[string]interface{})["user_id"])

	resp = call(t, r, http.MethodGet, "/whatsapp/account?phone_number=missing", "", nil)
	assert.Equal(t, xerr.NotFound, resp.Code)
}

func TestRoutesRequireTokenWhenKeySet(t *testing.T) {
	withJwtKey(t, "router-test-key")
	r := newTestRouter(t)

	resp := call(t, r, http.MethodGet, "/knowledge/source/list?user_id=u1", "", nil)
	assert.Equal(t, xerr.Unauthorized, resp.Code)

	token := userToken(t, "router-test-key", "u1")

	resp = call(t, r, http.MethodGet, "/knowledge/source/list?user_id=u1", token, nil)
	assert.Equal(t, xerr.OK, resp.Code)

	resp = call(t, r, http.MethodGet, "/knowledge/source/list?user_id=u2", token, nil)
	assert.Equal(t, xerr.Forbidden, resp.Code)

	resp = call(t, r, http.MethodPost, "/whatsapp/account/save", token, map[string]string{
		"user_id": "u1", "phone_number": "+200", "jid": "200@s.whatsapp.net",
	})
	require.Equal(t, xerr.OK, resp.Code, resp.Message)

	other := userToken(t, "router-test-key", "u2")
	resp = call(t, r, http.MethodGet, "/whatsapp/account?phone_number=%2B200", other, nil)
	assert.Equal(t, xerr.Forbidden, resp.Code)
}

func TestHealthzStaysOpenWithAuth(t *testing.T) {
	withJwtKey(t, "router-test-key")
	r := newTestRouter(t)
	resp := call(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, xerr.OK, resp.Code)
}
