package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/webfamily/familycrud/pkg/middleware"
	"github.com/webfamily/familycrud/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSecret = "test-secret-key"
	testIssuer = "test-issuer"
)

// setupTestServer はテスト用のAPIサーバーをインメモリSQLiteで構築する。
// 本番と同じルーティングと認証ゲートを適用する。
func setupTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	// コネクションごとに別のインメモリDBが作られるのを防ぐ
	sqlDB.SetMaxOpenConns(1)

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())

	s := &Server{
		router:       router,
		port:         "0",
		store:        NewStore(sqlDB),
		db:           sqlDB,
		tokenService: token.NewService(testSecret, testIssuer),
		authenticate: staticAuthenticate,
	}
	s.setupRoutes()

	return s, router
}

// loginTestToken はテスト用に/loginを呼び出して有効なトークンを取得するヘルパー関数。
func loginTestToken(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/login", "", map[string]string{
		"username": "admin",
		"password": "123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ログインに失敗: status=%d, body=%s", w.Code, w.Body.String())
	}

	result := parseJSON(t, w)
	tokenStr, ok := result["token"].(string)
	if !ok || tokenStr == "" {
		t.Fatalf("トークンが取得できない: body=%s", w.Body.String())
	}
	return tokenStr
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router *gin.Engine, method, path, tokenStr string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if tokenStr != "" {
		req.Header.Set("Authorization", "Bearer "+tokenStr)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// TestHealthCheck はヘルスチェックエンドポイントの正常動作を検証する。
func TestHealthCheck(t *testing.T) {
	t.Parallel()

	_, router := setupTestServer(t)

	w := doRequest(router, http.MethodGet, "/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	result := parseJSON(t, w)
	if result["status"] != "ok" {
		t.Errorf("status = %v, want %q", result["status"], "ok")
	}
}

// TestLogin はログインエンドポイントを検証する。
func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("正しい資格情報でトークンが発行されること", func(t *testing.T) {
		t.Parallel()

		s, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "admin",
			"password": "123",
		})

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSON(t, w)
		tokenStr, ok := result["token"].(string)
		if !ok || tokenStr == "" {
			t.Fatalf("トークンが返されていない: body=%s", w.Body.String())
		}

		// 発行されたトークンのsubjectがユーザー名と一致すること
		subject, err := s.tokenService.Validate(tokenStr)
		if err != nil {
			t.Fatalf("発行されたトークンの検証に失敗: %v", err)
		}
		if subject != "admin" {
			t.Errorf("subject = %q, want %q", subject, "admin")
		}
	})

	t.Run("パスワードが誤っている場合に401が返ること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "admin",
			"password": "wrong",
		})

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if _, hasToken := parseJSON(t, w)["token"]; hasToken {
			t.Error("認証失敗時にトークンが返された")
		}
	})

	t.Run("ユーザー名が誤っている場合に401が返ること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "root",
			"password": "123",
		})

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("ユーザー名もパスワードも誤っている場合のレスポンスがパスワードのみ誤りの場合と同一であること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		wBoth := doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "root",
			"password": "wrong",
		})
		wPassword := doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "admin",
			"password": "wrong",
		})

		if wBoth.Code != wPassword.Code {
			t.Errorf("ステータスコードが一致しない: %d vs %d", wBoth.Code, wPassword.Code)
		}
		if wBoth.Body.String() != wPassword.Body.String() {
			t.Errorf("レスポンスボディが一致しない: %s vs %s", wBoth.Body.String(), wPassword.Body.String())
		}
	})

	t.Run("必須フィールドが欠けている場合に400が返ること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "admin",
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("差し替えた資格情報チェックが使用されること", func(t *testing.T) {
		t.Parallel()

		s, router := setupTestServer(t)
		s.authenticate = func(username, password string) bool {
			return username == "alice" && password == "secret"
		}

		w := doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "alice",
			"password": "secret",
		})
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}

		w = doRequest(router, http.MethodPost, "/login", "", map[string]string{
			"username": "admin",
			"password": "123",
		})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestAuthGate は保護されたルートへの認証ゲートを検証する。
func TestAuthGate(t *testing.T) {
	t.Parallel()

	t.Run("トークン無しで保護されたルートにアクセスすると401が返ること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)

		protected := []struct {
			method string
			path   string
		}{
			{http.MethodGet, "/groups"},
			{http.MethodGet, "/groups/1"},
			{http.MethodPost, "/groups"},
			{http.MethodPut, "/groups/1"},
			{http.MethodDelete, "/groups/1"},
			{http.MethodGet, "/clients"},
			{http.MethodGet, "/clients/1"},
			{http.MethodPost, "/clients"},
			{http.MethodPut, "/clients/1"},
			{http.MethodDelete, "/clients/1"},
		}
		for _, route := range protected {
			w := doRequest(router, route.method, route.path, "", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s %s: ステータスコード = %d, want %d",
					route.method, route.path, w.Code, http.StatusUnauthorized)
			}
		}
	})

	t.Run("トークン無しの書き込みリクエストがストアに副作用を残さないこと", func(t *testing.T) {
		t.Parallel()

		s, router := setupTestServer(t)

		w := doRequest(router, http.MethodPost, "/groups", "", map[string]string{"name": "Family"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}

		groups, err := s.store.ListGroups(context.Background())
		if err != nil {
			t.Fatalf("グループ一覧の取得に失敗: %v", err)
		}
		if len(groups) != 0 {
			t.Errorf("グループ数 = %d, want 0", len(groups))
		}
	})

	t.Run("不正なトークンで保護されたルートにアクセスすると401が返ること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodGet, "/groups", "broken-token", nil)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("有効なトークンで保護されたルートにアクセスできること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		tokenStr := loginTestToken(t, router)

		w := doRequest(router, http.MethodGet, "/groups", tokenStr, nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})
}
