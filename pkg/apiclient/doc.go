// Package apiclient はグループ・クライアント管理APIを利用するためのGoクライアントを提供する。
//
// ログインで取得したBearerトークンを保持し、以降のリクエストの
// Authorizationヘッダーに自動的に付与する。
package apiclient
