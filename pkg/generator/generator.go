package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
	"github.com/shouni/go-comic-movie-kit/pkg/poller"
	"github.com/shouni/go-comic-movie-kit/pkg/prompts"
)

const (
	opDescribeCharacter    = "describeCharacter"
	opRenderCharacterSheet = "renderCharacterSheet"
	opOpenStorySession     = "openStorySession"
	opTranscribe           = "transcribe"

	sheetAspectRatio = "1:1"
	pageAspectRatio  = "4:3"
)

// Args は Generator の構築に必要な依存関係です。
type Args struct {
	Provider adapters.Provider
	Store    ArtifactStore
	Fetcher  poller.Fetcher
	// Prompts が nil の場合は埋め込みテンプレートのビルダーを使います。
	Prompts prompts.PromptBuilder
	// Sleeper が nil の場合は実時間で待機します。
	Sleeper pacing.Sleeper

	PageImageDelay time.Duration
	PollInterval   time.Duration
	// VideoTimeout は1本の動画ジョブを待つ上限です。0 なら上限を設けません。
	VideoTimeout time.Duration
}

// Generator は adapters.Provider の上に Client を実装します。
type Generator struct {
	provider     adapters.Provider
	store        ArtifactStore
	prompts      prompts.PromptBuilder
	poller       *poller.Poller
	pagePacing   pacing.Policy
	videoTimeout time.Duration
}

// New は Generator を生成します。
func New(args Args) (*Generator, error) {
	if args.Provider == nil {
		return nil, fmt.Errorf("provider は必須です")
	}
	if args.Store == nil {
		return nil, fmt.Errorf("artifact store は必須です")
	}
	if args.Fetcher == nil {
		return nil, fmt.Errorf("fetcher は必須です")
	}

	pb, err := initializePromptBuilder(args.Prompts)
	if err != nil {
		return nil, err
	}

	sleeper := args.Sleeper
	if sleeper == nil {
		sleeper = pacing.TimerSleeper{}
	}

	pl, err := poller.New(args.Provider, args.Fetcher,
		poller.WithInterval(args.PollInterval),
		poller.WithSleeper(sleeper),
	)
	if err != nil {
		return nil, fmt.Errorf("ジョブポーラーの初期化に失敗しました: %w", err)
	}

	delay := args.PageImageDelay
	if delay <= 0 {
		delay = pacing.PageImageDelay
	}

	return &Generator{
		provider:     args.Provider,
		store:        args.Store,
		prompts:      pb,
		poller:       pl,
		pagePacing:   pacing.Policy{Delay: delay, Sleeper: sleeper},
		videoTimeout: args.VideoTimeout,
	}, nil
}

// initializePromptBuilder は既存のビルダーが渡された場合はそれを返し、nil の場合は新規作成します。
func initializePromptBuilder(pb prompts.PromptBuilder) (prompts.PromptBuilder, error) {
	if pb != nil {
		return pb, nil
	}
	b, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}
	return b, nil
}

func (g *Generator) build(mode string, fill func(*prompts.TemplateData)) (string, error) {
	data := prompts.NewTemplateData()
	if fill != nil {
		fill(&data)
	}
	return g.prompts.Build(mode, data)
}

// DescribeCharacter はアイデアの種類に応じたプロンプトで説明文を生成します。
// 画像アイデアの場合は画像データをインラインで添付します。
func (g *Generator) DescribeCharacter(ctx context.Context, idea domain.Idea) (string, error) {
	if err := idea.Validate(); err != nil {
		return "", apperr.Precondition(opDescribeCharacter, err.Error())
	}

	mode := prompts.ModeCharacterText
	req := adapters.TextRequest{}
	if idea.Type == domain.IdeaImage {
		mode = prompts.ModeCharacterImage
		req.Media = []adapters.Media{{Data: idea.Image.Data, MIMEType: idea.Image.MIMEType}}
	}

	prompt, err := g.build(mode, func(d *prompts.TemplateData) { d.Idea = idea.Content })
	if err != nil {
		return "", err
	}
	req.Prompt = prompt

	slog.InfoContext(ctx, "キャラクターの説明を生成しています", "idea_type", idea.Type)
	text, err := g.provider.GenerateText(ctx, req)
	if err != nil {
		return "", apperr.Provider(opDescribeCharacter, "failed to describe the character", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Provider(opDescribeCharacter, "the provider returned no character description", nil)
	}
	return text, nil
}

// RenderCharacterSheet は固定の構図テンプレートで設定画を1枚生成します。
func (g *Generator) RenderCharacterSheet(ctx context.Context, description string) (domain.Artifact, error) {
	prompt, err := g.build(prompts.ModeCharacterSheet, func(d *prompts.TemplateData) { d.Description = description })
	if err != nil {
		return domain.Artifact{}, err
	}

	img, err := g.renderImage(ctx, opRenderCharacterSheet, prompt, sheetAspectRatio)
	if err != nil {
		return domain.Artifact{}, err
	}
	slog.InfoContext(ctx, "キャラクター設定画を生成しました", "ref", img.Ref, "size", img.Size)
	return img, nil
}

// renderImage は画像を1枚生成してストアに保存します。0 枚の応答は ProviderError です。
func (g *Generator) renderImage(ctx context.Context, op, prompt, aspect string) (domain.Artifact, error) {
	images, err := g.provider.GenerateImages(ctx, adapters.ImageRequest{Prompt: prompt, AspectRatio: aspect})
	if err != nil {
		return domain.Artifact{}, apperr.Provider(op, "image generation failed", err)
	}
	if len(images) == 0 || len(images[0].Data) == 0 {
		return domain.Artifact{}, apperr.Provider(op, "image generation returned no images", nil)
	}

	a, err := g.store.Put(images[0].Data, images[0].MIMEType)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return a, nil
}

// OpenStorySession は systemPrompt をシステム指示とした会話を開始します。
func (g *Generator) OpenStorySession(ctx context.Context, systemPrompt string) (StorySession, error) {
	chat, err := g.provider.StartChat(ctx, systemPrompt)
	if err != nil {
		return nil, apperr.Provider(opOpenStorySession, "failed to open the storyboard chat", err)
	}
	return newStorySession(chat, g.prompts), nil
}

// Transcribe は音声データを文字起こしします。
// 発話が検出できなかった場合はエラーにせず空文字を返します。
func (g *Generator) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	prompt, err := g.build(prompts.ModeTranscribe, nil)
	if err != nil {
		return "", err
	}

	text, err := g.provider.GenerateText(ctx, adapters.TextRequest{
		Prompt: prompt,
		Media:  []adapters.Media{{Data: audio, MIMEType: mimeType}},
	})
	if err != nil {
		return "", apperr.Provider(opTranscribe, "failed to transcribe the recording", err)
	}
	return strings.TrimSpace(text), nil
}
