// Package server はグループ・クライアント管理APIの内部実装を提供する。
//
// グループ(Group)とクライアント(Client)の2つのエンティティをSQLiteに永続化し、
// JWT Bearer認証で保護されたCRUDエンドポイントとして公開する。クライアントは
// 必ず1つのグループを参照する(group_id)が、参照先の存在チェックは行わない。
// この未検証の外部キーは既知の仕様であり、スキーマとテストで明示している。
package server
