package generator

import (
	"context"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/progress"
)

// Client は外部の生成プロバイダに対する能力単位のインターフェースです。
// 各操作は1回の要求・応答（または1つの非同期ジョブ）に対応します。
type Client interface {
	// DescribeCharacter はアイデアからキャラクターの詳細な説明文を生成します。
	DescribeCharacter(ctx context.Context, idea domain.Idea) (string, error)
	// RenderCharacterSheet は説明文から正面・側面のキャラクター設定画を生成します。
	RenderCharacterSheet(ctx context.Context, description string) (domain.Artifact, error)
	// OpenStorySession は共作者ペルソナを設定した会話を開始します。
	OpenStorySession(ctx context.Context, systemPrompt string) (StorySession, error)
	// RenderStoryPages は 16 ページ分の本文と画像を順番に生成します。
	RenderStoryPages(ctx context.Context, story domain.Story, characterDescription string, onProgress progress.Func) (domain.Pages, error)
	// RenderVideoForPage はページ画像とシーン本文から動画を生成します。
	RenderVideoForPage(ctx context.Context, page domain.Page) (domain.Artifact, error)
}

// StorySession はストーリーボードの会話です。ターンは同時に1つしか進められません。
type StorySession interface {
	SendTurn(ctx context.Context, message string) (string, error)
	ExtractApprovedStory(ctx context.Context) (domain.Story, error)
}

// Transcriber は音声データを文字起こしします。音声が認識できない場合は空文字を返します。
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// ArtifactStore は生成物のバイト列を保持し、参照ハンドルを発行します。
type ArtifactStore interface {
	Put(data []byte, mimeType string) (domain.Artifact, error)
	Get(a domain.Artifact) ([]byte, error)
}
