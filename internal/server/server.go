package server

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/webfamily/familycrud/pkg/middleware"
	"github.com/webfamily/familycrud/pkg/token"
)

// defaultJWTSecret はJWT_SECRET未設定時のフォールバック秘密鍵。
// 既知の弱い初期値であり、本番環境では必ず環境変数で上書きすること。
const defaultJWTSecret = "chave-super-secreta"

// defaultJWTIssuer はJWT_ISSUER未設定時のトークン発行者名。
const defaultJWTIssuer = "WebFamilyCrud"

// AuthenticateFunc はログイン資格情報を検証する関数。
// 実際の資格情報ストアへの差し替えを可能にするための型。
type AuthenticateFunc func(username, password string) bool

// staticAuthenticate は固定のadmin/123ペアと照合する既定の資格情報チェック。
func staticAuthenticate(username, password string) bool {
	return username == "admin" && password == "123"
}

// Server はグループ・クライアント管理APIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はグループとクライアントの永続化層。
	store *Store
	// db はSQLiteデータベース接続。
	db *sql.DB
	// tokenService はBearerトークンの発行・検証サービス。
	tokenService *token.Service
	// authenticate はログイン資格情報の検証関数。
	authenticate AuthenticateFunc
}

// NewServer は新しいAPIサーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("DB_PATH", "/data/familycrud.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = defaultJWTSecret
		log.Printf("JWT_SECRETが未設定のため初期値を使用します。本番環境では必ず設定してください")
	}
	jwtIssuer := getEnvOr("JWT_ISSUER", defaultJWTIssuer)

	frontendURL := getEnvOr("FRONTEND_URL", "*")

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))

	s := &Server{
		router:       router,
		port:         port,
		store:        NewStore(sqlDB),
		db:           sqlDB,
		tokenService: token.NewService(jwtSecret, jwtIssuer),
		authenticate: staticAuthenticate,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はルーティング設定済みのHTTPハンドラを返す。
// httptestなど外部のHTTPサーバーに組み込む場合に使用する。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
// ログインとヘルスチェック以外のすべてのルートにBearer認証を適用する。
func (s *Server) setupRoutes() {
	// ログイン（認証不要）
	s.router.POST("/login", s.handleLogin())

	// 認証必須のリソースエンドポイント
	authed := s.router.Group("/")
	authed.Use(middleware.JWTAuth(s.tokenService))
	{
		groups := authed.Group("/groups")
		{
			// グループ作成
			groups.POST("", s.handleCreateGroup())
			// グループ一覧取得
			groups.GET("", s.handleListGroups())
			// グループ詳細取得
			groups.GET("/:id", s.handleGetGroup())
			// グループ更新
			groups.PUT("/:id", s.handleUpdateGroup())
			// グループ削除
			groups.DELETE("/:id", s.handleDeleteGroup())
		}

		clients := authed.Group("/clients")
		{
			// クライアント作成
			clients.POST("", s.handleCreateClient())
			// クライアント一覧取得（所属グループを展開して返す）
			clients.GET("", s.handleListClients())
			// クライアント詳細取得（所属グループを展開して返す）
			clients.GET("/:id", s.handleGetClient())
			// クライアント更新
			clients.PUT("/:id", s.handleUpdateClient())
			// クライアント削除
			clients.DELETE("/:id", s.handleDeleteClient())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "familycrud"})
	})
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Username はユーザー名。
	Username string `json:"username" binding:"required"`
	// Password はパスワード。
	Password string `json:"password" binding:"required"`
}

// handleLogin はログインを処理するハンドラを返す。
// 資格情報が一致した場合のみトークンを発行する。不一致の理由は
// ユーザー名・パスワードいずれの誤りでも区別せず、一律401を返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if !s.authenticate(req.Username, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証に失敗しました"})
			return
		}

		tokenString, err := s.tokenService.Issue(req.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークンの発行に失敗しました"})
			log.Printf("トークン発行エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": tokenString})
	}
}

// parseID はパスパラメータのIDを整数に変換する。
// 整数でない値はルートに一致しなかったものとして扱う。
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "リソースが見つかりません"})
		return 0, false
	}
	return id, true
}

// getEnvOr は環境変数の値を取得する。未設定の場合はフォールバック値を返す。
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
