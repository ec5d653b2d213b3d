package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-comic-movie-kit/cmd"
)

// main はアプリケーションの唯一のエントリーポイントなのだ！
// コマンドライン引数の解析と実行はすべて cmd パッケージに委ねるのだよ。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
