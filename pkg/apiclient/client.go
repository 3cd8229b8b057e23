package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Group はAPIが返すグループ。
type Group struct {
	// ID はグループの一意識別子。
	ID int64 `json:"id"`
	// Name はグループ名。
	Name string `json:"name"`
	// Clients は所属クライアントの一覧。
	Clients []ClientRecord `json:"clients"`
}

// GroupRef はクライアントのレスポンス内に展開された所属グループ。
type GroupRef struct {
	// ID はグループの一意識別子。
	ID int64 `json:"id"`
	// Name はグループ名。
	Name string `json:"name"`
}

// ClientRecord はAPIが返すクライアント。
type ClientRecord struct {
	// ID はクライアントの一意識別子。
	ID int64 `json:"id"`
	// Name はクライアント名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// GroupID は所属グループのID。
	GroupID int64 `json:"group_id"`
	// Group は展開済みの所属グループ。参照先が存在しない場合はnil。
	Group *GroupRef `json:"group"`
}

// StatusError はAPIが2xx以外のステータスコードを返したことを表す。
type StatusError struct {
	// StatusCode はレスポンスのHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, e.Body)
}

// Client はグループ・クライアント管理APIのHTTPクライアント。
// Loginで取得したトークンを保持し、以降のリクエストに付与する。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先APIのベースURL。
	baseURL string
	// token はログインで取得したBearerトークン。
	token string
}

// New は新しいAPIクライアントを生成する。
// baseURLには接続先のベースURL（例: "http://localhost:8080"）を指定する。
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Login は資格情報でログインし、取得したトークンをクライアントに保持する。
func (c *Client) Login(ctx context.Context, username, password string) error {
	var result struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/login", body, &result); err != nil {
		return err
	}
	c.token = result.Token
	return nil
}

// CreateGroup はグループを作成する。
func (c *Client) CreateGroup(ctx context.Context, name string) (Group, error) {
	var g Group
	err := c.doJSON(ctx, http.MethodPost, "/groups", map[string]string{"name": name}, &g)
	return g, err
}

// ListGroups はすべてのグループを取得する。
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	err := c.doJSON(ctx, http.MethodGet, "/groups", nil, &groups)
	return groups, err
}

// GetGroup はIDでグループを1件取得する。
func (c *Client) GetGroup(ctx context.Context, id int64) (Group, error) {
	var g Group
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/groups/%d", id), nil, &g)
	return g, err
}

// UpdateGroup はグループ名を更新する。
func (c *Client) UpdateGroup(ctx context.Context, id int64, name string) (Group, error) {
	var g Group
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/groups/%d", id), map[string]string{"name": name}, &g)
	return g, err
}

// DeleteGroup はグループを削除する。
func (c *Client) DeleteGroup(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/groups/%d", id), nil, nil)
}

// CreateClientParams はCreateClientのパラメータ。
type CreateClientParams struct {
	// Name はクライアント名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// GroupID は所属グループのID。
	GroupID int64 `json:"group_id"`
}

// CreateClient はクライアントを作成する。
func (c *Client) CreateClient(ctx context.Context, params CreateClientParams) (ClientRecord, error) {
	var record ClientRecord
	err := c.doJSON(ctx, http.MethodPost, "/clients", params, &record)
	return record, err
}

// ListClients はすべてのクライアントを所属グループの展開付きで取得する。
func (c *Client) ListClients(ctx context.Context) ([]ClientRecord, error) {
	var records []ClientRecord
	err := c.doJSON(ctx, http.MethodGet, "/clients", nil, &records)
	return records, err
}

// GetClient はIDでクライアントを所属グループの展開付きで1件取得する。
func (c *Client) GetClient(ctx context.Context, id int64) (ClientRecord, error) {
	var record ClientRecord
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/clients/%d", id), nil, &record)
	return record, err
}

// UpdateClient はクライアントの名前・メールアドレス・所属グループを更新する。
func (c *Client) UpdateClient(ctx context.Context, id int64, params CreateClientParams) (ClientRecord, error) {
	var record ClientRecord
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/clients/%d", id), params, &record)
	return record, err
}

// DeleteClient はクライアントを削除する。
func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/clients/%d", id), nil, nil)
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
// トークンを保持している場合はAuthorizationヘッダーに付与する。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}
