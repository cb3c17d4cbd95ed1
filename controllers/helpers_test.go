package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"picstream-api/auth"
	"picstream-api/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const clientTestTimeout = 2 * time.Second

// testDB opens a per-test in-memory database with the same duplicate-key
// translation the production Postgres connection uses.
func testDB(t *testing.T, schemas ...interface{}) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(schemas...))
	return db
}

// asUser injects a verified identity, standing in for RequireAuth.
func asUser(id uint, username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("identity", &auth.Identity{UserID: id, Username: username, Token: "test-token"})
		c.Next()
	}
}

// deadEventsClient points at a closed port; deliveries fail fast and are
// dropped, which is the documented best-effort behavior.
func deadEventsClient() *services.EventsClient {
	return services.NewEventsClient("http://127.0.0.1:1", 200*time.Millisecond, zap.NewNop())
}

func deadAuthClient() *services.AuthClient {
	return services.NewAuthClient("http://127.0.0.1:1", 200*time.Millisecond)
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// multipartImage builds an upload request body with one image part plus
// extra form fields.
func multipartImage(t *testing.T, field, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	return buf, mw.FormDataContentType()
}

// memStorage is an in-memory Storage for controller tests.
type memStorage struct {
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return "/uploads/" + key, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStorage) ListKeys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

// stubOracle drives the visibility gate in tests.
type stubOracle struct {
	friends bool
	err     error
}

func (s *stubOracle) AreFriends(context.Context, *auth.Identity, uint) (bool, error) {
	return s.friends, s.err
}
