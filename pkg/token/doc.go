// Package token はBearerトークンの発行と検証を提供する。
//
// HMAC-SHA-256で署名された有効期限付きJWTを扱う。秘密鍵と発行者名は
// Serviceの生成時に注入され、プロセス全体で不変の設定として扱われる。
// トークンは永続化されず、有効期限切れのみが唯一の失効手段となる。
package token
