package adapters

import (
	"context"

	"github.com/shouni/go-comic-movie-kit/pkg/poller"

	"google.golang.org/genai"
)

// Media はリクエストにインラインで埋め込むバイナリです（画像・音声）。
type Media struct {
	Data     []byte
	MIMEType string
}

// TextRequest はテキスト生成の1リクエストです。
type TextRequest struct {
	Prompt string
	// Media はプロンプトより前に並べる添付データです。
	Media []Media
	// Schema を指定すると JSON での構造化出力を要求します。
	Schema *genai.Schema
}

// ImageRequest は画像生成の1リクエストです。
type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// ImageResponse は生成された1枚の画像です。
type ImageResponse struct {
	Data     []byte
	MIMEType string
}

// VideoRequest は動画生成ジョブの投入内容です。
type VideoRequest struct {
	Prompt string
	Image  Media
}

// TextAdapter は1回の要求・応答でテキストを生成します。
type TextAdapter interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageAdapter は画像を生成します。0 枚の応答もエラーにせずそのまま返します。
type ImageAdapter interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([]ImageResponse, error)
}

// ChatSession は状態を持つ複数ターンの会話です。
type ChatSession interface {
	Send(ctx context.Context, message string) (string, error)
}

// ChatAdapter はシステム指示付きの会話を開始します。
type ChatAdapter interface {
	StartChat(ctx context.Context, systemInstruction string) (ChatSession, error)
}

// VideoAdapter は動画生成ジョブを投入し、その状態を問い合わせます。
type VideoAdapter interface {
	poller.Checker
	SubmitVideo(ctx context.Context, req VideoRequest) (poller.Job, error)
}

// Provider は生成パイプラインが必要とするプロバイダの能力をまとめたものです。
type Provider interface {
	TextAdapter
	ImageAdapter
	ChatAdapter
	VideoAdapter
}
