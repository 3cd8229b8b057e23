package server

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// createClientRequest はクライアント作成リクエストのJSON構造。
type createClientRequest struct {
	// Name はクライアント名。
	Name string `json:"name" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required"`
	// GroupID は所属グループのID。存在確認は行わない。
	GroupID int64 `json:"group_id" binding:"required"`
}

// updateClientRequest はクライアント更新リクエストのJSON構造。
// 名前・メールアドレス・所属グループをまとめて更新する。
type updateClientRequest struct {
	// Name はクライアント名。
	Name string `json:"name" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required"`
	// GroupID は所属グループのID。存在確認は行わない。
	GroupID int64 `json:"group_id" binding:"required"`
}

// groupRef はクライアントのレスポンス内に展開する所属グループ。
type groupRef struct {
	// ID はグループの一意識別子。
	ID int64 `json:"id"`
	// Name はグループ名。
	Name string `json:"name"`
}

// clientResponse はクライアントのJSONレスポンス構造。
type clientResponse struct {
	// ID はクライアントの一意識別子。
	ID int64 `json:"id"`
	// Name はクライアント名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// GroupID は所属グループのID。
	GroupID int64 `json:"group_id"`
	// Group は展開済みの所属グループ。参照先が存在しない場合はnull。
	Group *groupRef `json:"group"`
}

// toClientResponse はDB行をJSONレスポンスに変換する。
func toClientResponse(cw ClientWithGroup) clientResponse {
	resp := clientResponse{
		ID:      cw.ID,
		Name:    cw.Name,
		Email:   cw.Email,
		GroupID: cw.GroupID,
	}
	if cw.Group != nil {
		resp.Group = &groupRef{ID: cw.Group.ID, Name: cw.Group.Name}
	}
	return resp
}

// handleCreateClient はクライアント作成を処理するハンドラを返す。
// group_idが実在するグループを指すかどうかは検証しない（既知の仕様）。
// 作成したクライアントをDBから取得し、Locationヘッダー付きで返す。
func (s *Server) handleCreateClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createClientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		id, err := s.store.CreateClient(c.Request.Context(), CreateClientParams{
			Name:    req.Name,
			Email:   req.Email,
			GroupID: req.GroupID,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "クライアントの作成に失敗しました"})
			log.Printf("クライアント作成エラー: %v", err)
			return
		}

		created, err := s.store.GetClientByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "作成したクライアントの取得に失敗しました"})
			log.Printf("クライアント取得エラー: %v", err)
			return
		}

		c.Header("Location", fmt.Sprintf("/clients/%d", created.ID))
		c.JSON(http.StatusCreated, toClientResponse(created))
	}
}

// handleListClients はクライアント一覧取得を処理するハンドラを返す。
// 各クライアントの所属グループは結合クエリで展開して返す。
func (s *Server) handleListClients() gin.HandlerFunc {
	return func(c *gin.Context) {
		clients, err := s.store.ListClientsWithGroup(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "クライアント一覧の取得に失敗しました"})
			log.Printf("クライアント一覧取得エラー: %v", err)
			return
		}

		responses := make([]clientResponse, 0, len(clients))
		for _, cw := range clients {
			responses = append(responses, toClientResponse(cw))
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleGetClient はクライアント詳細取得を処理するハンドラを返す。
// 所属グループを展開して返す。参照先グループが削除済みの場合、
// group_idはそのままにgroupはnullとなる。
func (s *Server) handleGetClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		cw, err := s.store.GetClientByID(c.Request.Context(), id)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "クライアントが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "クライアントの取得に失敗しました"})
			log.Printf("クライアント取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toClientResponse(cw))
	}
}

// handleUpdateClient はクライアント更新を処理するハンドラを返す。
// 存在しないIDに対しては404を返す。更新後の状態をDBから取得して返す。
func (s *Server) handleUpdateClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		// クライアントの存在確認
		if _, err := s.store.GetClientByID(c.Request.Context(), id); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "クライアントが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "クライアントの取得に失敗しました"})
			log.Printf("クライアント取得エラー: %v", err)
			return
		}

		var req updateClientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if err := s.store.UpdateClient(c.Request.Context(), UpdateClientParams{
			ID:      id,
			Name:    req.Name,
			Email:   req.Email,
			GroupID: req.GroupID,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "クライアントの更新に失敗しました"})
			log.Printf("クライアント更新エラー: %v", err)
			return
		}

		updated, err := s.store.GetClientByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新後のクライアントの取得に失敗しました"})
			log.Printf("クライアント取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toClientResponse(updated))
	}
}

// handleDeleteClient はクライアント削除を処理するハンドラを返す。
func (s *Server) handleDeleteClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		// クライアントの存在確認
		if _, err := s.store.GetClientByID(c.Request.Context(), id); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "クライアントが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "クライアントの取得に失敗しました"})
			log.Printf("クライアント取得エラー: %v", err)
			return
		}

		if err := s.store.DeleteClient(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "クライアントの削除に失敗しました"})
			log.Printf("クライアント削除エラー: %v", err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
