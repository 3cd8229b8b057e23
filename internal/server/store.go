package server

import (
	"context"
	"database/sql"
)

// Group はグループを表すレコード。
type Group struct {
	// ID はストアが採番する一意識別子。
	ID int64
	// Name はグループ名。
	Name string
}

// Client はクライアントを表すレコード。
type Client struct {
	// ID はストアが採番する一意識別子。
	ID int64
	// Name はクライアント名。
	Name string
	// Email はメールアドレス。
	Email string
	// GroupID は所属グループのID。参照先の存在は保証されない。
	GroupID int64
}

// ClientWithGroup はクライアントと結合済みの所属グループ。
// GroupIDが存在しないグループを指している場合、Groupはnilになる。
type ClientWithGroup struct {
	Client
	// Group は結合で取得した所属グループ。参照先が存在しない場合はnil。
	Group *Group
}

// Store はグループとクライアントのリレーショナル永続化層。
// 書き込みの一貫性とIDの採番はSQLiteに委ねる。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewStore は新しいストアを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateGroup はグループを作成し、採番されたIDを返す。
func (s *Store) CreateGroup(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO groups (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetGroupByID はIDでグループを1件取得する。
// 存在しない場合はsql.ErrNoRowsを返す。
func (s *Store) GetGroupByID(ctx context.Context, id int64) (Group, error) {
	var g Group
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name)
	return g, err
}

// ListGroups はすべてのグループをID順に取得する。
func (s *Store) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM groups ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpdateGroupParams はUpdateGroupのパラメータ。
type UpdateGroupParams struct {
	// ID は更新対象のグループID。
	ID int64
	// Name は更新後のグループ名。
	Name string
}

// UpdateGroup はグループ名を更新する。
func (s *Store) UpdateGroup(ctx context.Context, params UpdateGroupParams) error {
	_, err := s.db.ExecContext(ctx, "UPDATE groups SET name = ? WHERE id = ?", params.Name, params.ID)
	return err
}

// DeleteGroup はグループを削除する。
// このグループを参照しているクライアントの有無は確認しない。
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	return err
}

// CreateClientParams はCreateClientのパラメータ。
type CreateClientParams struct {
	// Name はクライアント名。
	Name string
	// Email はメールアドレス。
	Email string
	// GroupID は所属グループのID。存在確認は行わない。
	GroupID int64
}

// CreateClient はクライアントを作成し、採番されたIDを返す。
// GroupIDが実在するグループを指すかどうかは検証しない。
func (s *Store) CreateClient(ctx context.Context, params CreateClientParams) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO clients (name, email, group_id) VALUES (?, ?, ?)",
		params.Name, params.Email, params.GroupID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetClientByID はIDでクライアントを所属グループとの結合付きで1件取得する。
// 存在しない場合はsql.ErrNoRowsを返す。参照先グループが存在しない場合、
// Groupはnilのままクライアント本体を返す。
func (s *Store) GetClientByID(ctx context.Context, id int64) (ClientWithGroup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.email, c.group_id, g.id, g.name
		FROM clients c
		LEFT JOIN groups g ON g.id = c.group_id
		WHERE c.id = ?`, id)
	return scanClientWithGroup(row.Scan)
}

// ListClientsWithGroup はすべてのクライアントを所属グループとの結合付きで
// ID順に取得する。結合はこのクエリ内で明示的に行う(遅延読み込みはしない)。
func (s *Store) ListClientsWithGroup(ctx context.Context) ([]ClientWithGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.email, c.group_id, g.id, g.name
		FROM clients c
		LEFT JOIN groups g ON g.id = c.group_id
		ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var clients []ClientWithGroup
	for rows.Next() {
		cw, err := scanClientWithGroup(rows.Scan)
		if err != nil {
			return nil, err
		}
		clients = append(clients, cw)
	}
	return clients, rows.Err()
}

// scanClientWithGroup は結合クエリの1行をClientWithGroupに変換する。
func scanClientWithGroup(scan func(dest ...any) error) (ClientWithGroup, error) {
	var cw ClientWithGroup
	var groupID sql.NullInt64
	var groupName sql.NullString
	if err := scan(&cw.ID, &cw.Name, &cw.Email, &cw.GroupID, &groupID, &groupName); err != nil {
		return ClientWithGroup{}, err
	}
	if groupID.Valid {
		cw.Group = &Group{ID: groupID.Int64, Name: groupName.String}
	}
	return cw, nil
}

// UpdateClientParams はUpdateClientのパラメータ。
type UpdateClientParams struct {
	// ID は更新対象のクライアントID。
	ID int64
	// Name は更新後のクライアント名。
	Name string
	// Email は更新後のメールアドレス。
	Email string
	// GroupID は更新後の所属グループID。存在確認は行わない。
	GroupID int64
}

// UpdateClient はクライアントの名前・メールアドレス・所属グループをまとめて更新する。
func (s *Store) UpdateClient(ctx context.Context, params UpdateClientParams) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE clients SET name = ?, email = ?, group_id = ? WHERE id = ?",
		params.Name, params.Email, params.GroupID, params.ID)
	return err
}

// DeleteClient はクライアントを削除する。
func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	return err
}
