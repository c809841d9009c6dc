package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/backend/internal/blob"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/service"
	"taskboard/backend/internal/storage/filesystem"
	"taskboard/backend/internal/storage/memory"
)

// asUser 测试用认证中间件，直接注入用户上下文
func asUser(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func newUploadTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	dir := t.TempDir()
	chunks, err := filesystem.NewChunkStore(dir)
	require.NoError(t, err)
	blobs := blob.NewMemoryStore("http://blob.test")

	cfg := config.UploadConfig{
		ChunkSize:   4,
		MaxFileSize: 1024,
		SessionTTL:  time.Hour,
		StoragePath: dir,
		PresignTTL:  15 * time.Minute,
	}
	uploads := service.NewUploadService(store, chunks, blobs, cfg, zap.NewNop())
	attachments := service.NewAttachmentService(store, blobs, zap.NewNop())
	handler := NewUploadHandler(uploads, attachments, zap.NewNop())

	require.NoError(t, store.CreateUser(&domain.User{
		ID: "client-1", Email: "c@example.com", Username: "client",
		Role: domain.RoleClient, IsActive: true,
	}))
	now := time.Now().UTC()
	require.NoError(t, store.SaveSubmission(&domain.Submission{
		ID: "sub-1", ClientID: "client-1", Title: "素材",
		Status: domain.SubmissionStatusNew, CreatedAt: now, UpdatedAt: now,
	}))

	router := gin.New()
	group := router.Group("/v1/uploads", asUser("client-1", "client"))
	group.POST("/sessions", handler.InitUpload)
	group.GET("/sessions/:id/status", handler.GetUploadStatus)
	group.PUT("/sessions/:id/chunks/:index", handler.PutChunk)
	group.POST("/sessions/:id/finalize", handler.FinalizeUpload)
	group.POST("/direct-target", handler.RequestDirectTarget)
	router.POST("/v1/attachments", asUser("client-1", "client"), handler.LinkDirectUpload)

	return router, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestUploadEndpoints(t *testing.T) {
	router, _ := newUploadTestRouter(t)

	// init：10 字节 3 块
	w := doJSON(t, router, http.MethodPost, "/v1/uploads/sessions", gin.H{
		"fileName":   "clip.bin",
		"fileSize":   10,
		"mimeType":   "application/octet-stream",
		"parentKind": "submission",
		"parentId":   "sub-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var initData struct {
		UploadID       string `json:"uploadId"`
		ChunkSize      int64  `json:"chunkSize"`
		ExpectedChunks int    `json:"expectedChunks"`
	}
	resp := decodeResponse(t, w)
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &initData))
	assert.Equal(t, int64(4), initData.ChunkSize)
	assert.Equal(t, 3, initData.ExpectedChunks)

	uploadID := initData.UploadID

	// 上传分块（原始字节请求体）
	for idx, part := range []string{"abcd", "efgh", "ij"} {
		req := httptest.NewRequest(http.MethodPut,
			fmt.Sprintf("/v1/uploads/sessions/%s/chunks/%d", uploadID, idx),
			bytes.NewReader([]byte(part)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// 状态查询
	w = doJSON(t, router, http.MethodGet, "/v1/uploads/sessions/"+uploadID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// finalize
	w = doJSON(t, router, http.MethodPost, "/v1/uploads/sessions/"+uploadID+"/finalize", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 会话已消费
	w = doJSON(t, router, http.MethodPost, "/v1/uploads/sessions/"+uploadID+"/finalize", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFinalizeIncompleteResponse(t *testing.T) {
	router, _ := newUploadTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/uploads/sessions", gin.H{
		"fileName":   "clip.bin",
		"fileSize":   10,
		"mimeType":   "application/octet-stream",
		"parentKind": "submission",
		"parentId":   "sub-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	uploadID := resp.Data.(map[string]interface{})["uploadId"].(string)

	req := httptest.NewRequest(http.MethodPut, "/v1/uploads/sessions/"+uploadID+"/chunks/0",
		bytes.NewReader([]byte("abcd")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// 分块不齐：400 且带已收/应收计数
	w = doJSON(t, router, http.MethodPost, "/v1/uploads/sessions/"+uploadID+"/finalize", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp = decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["received"])
	assert.Equal(t, float64(3), data["expected"])
	assert.Equal(t, float64(2), data["missing"])
}

func TestUploadErrorStatuses(t *testing.T) {
	router, _ := newUploadTestRouter(t)

	// 未知会话
	w := doJSON(t, router, http.MethodGet, "/v1/uploads/sessions/no-such-session/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 非法索引
	req := httptest.NewRequest(http.MethodPut, "/v1/uploads/sessions/x/chunks/abc",
		bytes.NewReader([]byte("abcd")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 声明大小超限
	w = doJSON(t, router, http.MethodPost, "/v1/uploads/sessions", gin.H{
		"fileName":   "huge.bin",
		"fileSize":   99999,
		"mimeType":   "application/octet-stream",
		"parentKind": "submission",
		"parentId":   "sub-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 父实体不存在
	w = doJSON(t, router, http.MethodPost, "/v1/uploads/sessions", gin.H{
		"fileName":   "x.bin",
		"fileSize":   10,
		"mimeType":   "application/octet-stream",
		"parentKind": "card",
		"parentId":   "no-such-card",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectUploadEndpoints(t *testing.T) {
	router, _ := newUploadTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/uploads/direct-target", gin.H{
		"fileName": "memo.mp3",
		"mimeType": "audio/mpeg",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	objectKey := resp.Data.(map[string]interface{})["objectKey"].(string)
	require.NotEmpty(t, objectKey)

	// 对象还没真正上传，登记被拒绝
	w = doJSON(t, router, http.MethodPost, "/v1/attachments", gin.H{
		"parentKind": "submission",
		"parentId":   "sub-1",
		"objectKey":  objectKey,
		"fileName":   "memo.mp3",
		"fileSize":   11,
		"mimeType":   "audio/mpeg",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
