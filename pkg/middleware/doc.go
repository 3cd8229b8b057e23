// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンの検証ゲート、リクエストID付与、パニックリカバリ、
// CORS設定を含む。認証ゲートはログインルート以外のすべてのルートに適用される。
package middleware
