package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	defaultRateBurst   = 2
	defaultTemperature = float32(0.7)
	pngMIMEType        = "image/png"
)

// GeminiConfig は Gemini アダプタの設定です。
type GeminiConfig struct {
	TextModel  string
	ImageModel string
	VideoModel string
	// RequestInterval はプロバイダへのリクエスト間隔の下限です。0 なら制限しません。
	RequestInterval time.Duration
	Temperature     *float32
}

// Gemini は genai SDK を使って Provider を実装します。
type Gemini struct {
	client  *genai.Client
	cfg     GeminiConfig
	limiter *rate.Limiter
}

// NewGeminiClient は Gemini API 用の genai クライアントを初期化します。
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY は必須です")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// NewGemini は Gemini アダプタを生成します。
func NewGemini(client *genai.Client, cfg GeminiConfig) (*Gemini, error) {
	if client == nil {
		return nil, fmt.Errorf("genai クライアントは必須です")
	}
	if cfg.TextModel == "" || cfg.ImageModel == "" || cfg.VideoModel == "" {
		return nil, fmt.Errorf("テキスト・画像・動画のモデル名は必須です")
	}
	if cfg.Temperature == nil {
		cfg.Temperature = genai.Ptr(defaultTemperature)
	}

	var limiter *rate.Limiter
	if cfg.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), defaultRateBurst)
	}

	return &Gemini{client: client, cfg: cfg, limiter: limiter}, nil
}

// throttle はリクエスト間隔の制限に従って待機します。
func (g *Gemini) throttle(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("レート制限の待機中にエラーが発生しました: %w", err)
	}
	return nil
}

// GenerateText はテキスト（必要に応じて JSON）を生成します。
func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := g.throttle(ctx); err != nil {
		return "", err
	}

	parts := make([]*genai.Part, 0, len(req.Media)+1)
	for _, m := range req.Media {
		parts = append(parts, genai.NewPartFromBytes(m.Data, m.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{Temperature: g.cfg.Temperature}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, contents, config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateImages は1枚の画像を PNG で生成します。
func (g *Gemini) GenerateImages(ctx context.Context, req ImageRequest) ([]ImageResponse, error) {
	if err := g.throttle(ctx); err != nil {
		return nil, err
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.cfg.ImageModel, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    req.AspectRatio,
		OutputMIMEType: pngMIMEType,
	})
	if err != nil {
		return nil, err
	}

	var images []ImageResponse
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := gi.Image.MIMEType
		if mimeType == "" {
			mimeType = pngMIMEType
		}
		images = append(images, ImageResponse{Data: gi.Image.ImageBytes, MIMEType: mimeType})
	}
	slog.DebugContext(ctx, "画像生成の応答を受け取りました", "model", g.cfg.ImageModel, "count", len(images))
	return images, nil
}

// geminiChat は genai.Chat を ChatSession として扱います。
type geminiChat struct {
	gemini *Gemini
	chat   *genai.Chat
}

// StartChat はシステム指示を設定した会話を開始します。
func (g *Gemini) StartChat(ctx context.Context, systemInstruction string) (ChatSession, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       g.cfg.Temperature,
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	chat, err := g.client.Chats.Create(ctx, g.cfg.TextModel, config, nil)
	if err != nil {
		return nil, err
	}
	return &geminiChat{gemini: g, chat: chat}, nil
}

// Send は1ターン分のメッセージを送り、モデルの返答テキストを返します。
func (c *geminiChat) Send(ctx context.Context, message string) (string, error) {
	if err := c.gemini.throttle(ctx); err != nil {
		return "", err
	}
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
