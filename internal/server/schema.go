package server

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    -- グループの一意識別子。AUTOINCREMENTにより削除後もIDは再利用されない
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    -- グループ名
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clients (
    -- クライアントの一意識別子。AUTOINCREMENTにより削除後もIDは再利用されない
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    -- クライアント名
    name TEXT NOT NULL,
    -- メールアドレス
    email TEXT NOT NULL,
    -- 所属グループのID。FOREIGN KEY制約は意図的に設定しない。
    -- 存在しないグループIDも受け入れ、グループ削除時も参照は残る
    group_id INTEGER NOT NULL
);

-- グループIDでの検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_clients_group_id
    ON clients(group_id);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
