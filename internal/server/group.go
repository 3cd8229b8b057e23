package server

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// createGroupRequest はグループ作成リクエストのJSON構造。
type createGroupRequest struct {
	// Name はグループ名。
	Name string `json:"name" binding:"required"`
}

// updateGroupRequest はグループ更新リクエストのJSON構造。
// 変更できるのは名前のみで、ボディ中のIDは無視される。
type updateGroupRequest struct {
	// Name はグループ名。
	Name string `json:"name" binding:"required"`
}

// groupResponse はグループのJSONレスポンス構造。
type groupResponse struct {
	// ID はグループの一意識別子。
	ID int64 `json:"id"`
	// Name はグループ名。
	Name string `json:"name"`
	// Clients は所属クライアントの一覧。グループの読み出しでは
	// 関連を展開しないため常に空配列となる（逆参照のみの関係）。
	Clients []clientResponse `json:"clients"`
}

// toGroupResponse はDB行をJSONレスポンスに変換する。
func toGroupResponse(g Group) groupResponse {
	return groupResponse{
		ID:      g.ID,
		Name:    g.Name,
		Clients: []clientResponse{},
	}
}

// handleCreateGroup はグループ作成を処理するハンドラを返す。
// 作成したグループをDBから取得し、Locationヘッダー付きで返す。
func (s *Server) handleCreateGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		id, err := s.store.CreateGroup(c.Request.Context(), req.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの作成に失敗しました"})
			log.Printf("グループ作成エラー: %v", err)
			return
		}

		created, err := s.store.GetGroupByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "作成したグループの取得に失敗しました"})
			log.Printf("グループ取得エラー: %v", err)
			return
		}

		c.Header("Location", fmt.Sprintf("/groups/%d", created.ID))
		c.JSON(http.StatusCreated, toGroupResponse(created))
	}
}

// handleListGroups はグループ一覧取得を処理するハンドラを返す。
func (s *Server) handleListGroups() gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := s.store.ListGroups(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループ一覧の取得に失敗しました"})
			log.Printf("グループ一覧取得エラー: %v", err)
			return
		}

		responses := make([]groupResponse, 0, len(groups))
		for _, g := range groups {
			responses = append(responses, toGroupResponse(g))
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleGetGroup はグループ詳細取得を処理するハンドラを返す。
func (s *Server) handleGetGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		g, err := s.store.GetGroupByID(c.Request.Context(), id)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "グループが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの取得に失敗しました"})
			log.Printf("グループ取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toGroupResponse(g))
	}
}

// handleUpdateGroup はグループ更新を処理するハンドラを返す。
// 存在しないIDに対しては404を返す。更新後の状態をDBから取得して返す。
func (s *Server) handleUpdateGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		// グループの存在確認
		if _, err := s.store.GetGroupByID(c.Request.Context(), id); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "グループが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの取得に失敗しました"})
			log.Printf("グループ取得エラー: %v", err)
			return
		}

		var req updateGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if err := s.store.UpdateGroup(c.Request.Context(), UpdateGroupParams{
			ID:   id,
			Name: req.Name,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの更新に失敗しました"})
			log.Printf("グループ更新エラー: %v", err)
			return
		}

		updated, err := s.store.GetGroupByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新後のグループの取得に失敗しました"})
			log.Printf("グループ取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toGroupResponse(updated))
	}
}

// handleDeleteGroup はグループ削除を処理するハンドラを返す。
// このグループを参照しているクライアントが残っていても削除を拒否しない。
// 残ったクライアントのgroup_idは宙に浮いた参照となる（既知の仕様）。
func (s *Server) handleDeleteGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		// グループの存在確認
		if _, err := s.store.GetGroupByID(c.Request.Context(), id); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "グループが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの取得に失敗しました"})
			log.Printf("グループ取得エラー: %v", err)
			return
		}

		if err := s.store.DeleteGroup(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの削除に失敗しました"})
			log.Printf("グループ削除エラー: %v", err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
