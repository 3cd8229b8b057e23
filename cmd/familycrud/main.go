// グループ・クライアント管理APIサービスのエントリポイント。
// ログインによるJWT発行と、Bearer認証で保護されたグループ・クライアントの
// CRUDエンドポイントを提供する。
package main

import (
	"log"
	"os"

	"github.com/webfamily/familycrud/internal/server"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv, err := server.NewServer(port)
	if err != nil {
		log.Fatalf("APIサーバーの初期化に失敗: %v", err)
	}

	log.Printf("familycrudサービスを起動します: :%s", port)
	if err := srv.Run(); err != nil {
		log.Fatalf("familycrudサービスの起動に失敗: %v", err)
	}
}
