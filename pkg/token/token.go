package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL はトークン発行から失効までの有効期間。
const TTL = time.Hour

// ErrInvalidToken は署名・有効期限・発行者のいずれかの検証に失敗したことを表す。
// 呼び出し元には失敗理由を区別させず、一律に未認証として扱わせる。
var ErrInvalidToken = errors.New("トークンが無効です")

// Service はBearerトークンの発行と検証を行うサービス。
// 秘密鍵と発行者名は起動時に一度だけ注入され、以降は不変。
type Service struct {
	// secret はHMAC-SHA-256署名用の秘密鍵。
	secret []byte
	// issuer はトークンのiss(発行者)クレームに設定する名前。
	issuer string
}

// NewService は新しいトークンサービスを生成する。
// secretは設定文字列をそのままバイト列として鍵に用いる。
func NewService(secret, issuer string) *Service {
	return &Service{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Issue は認証済みの識別子subjectを持つ署名付きトークンを発行する。
// 有効期限は発行時刻からTTL(1時間)後に設定する。
func (s *Service) Issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Validate はトークンの署名・有効期限・発行者を検証し、subjectクレームを返す。
// aud(宛先)クレームは検証しない。失敗理由は区別せずErrInvalidTokenを返す。
func (s *Service) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
