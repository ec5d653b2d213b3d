package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/prompts"
)

const (
	opSendTurn             = "sendTurn"
	opExtractApprovedStory = "extractApprovedStory"
)

// ErrSessionBusy は同じ会話で別のターンが進行中であることを表します。
var ErrSessionBusy = errors.New("story session already has a turn in flight")

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?\\S)\\s*```")

// storySession は adapters.ChatSession をストーリーボード用に包みます。
type storySession struct {
	chat    adapters.ChatSession
	prompts prompts.PromptBuilder
	mu      sync.Mutex
}

func newStorySession(chat adapters.ChatSession, pb prompts.PromptBuilder) *storySession {
	return &storySession{chat: chat, prompts: pb}
}

// SendTurn は1ターン分のやり取りを行います。
func (s *storySession) SendTurn(ctx context.Context, message string) (string, error) {
	if !s.mu.TryLock() {
		return "", ErrSessionBusy
	}
	defer s.mu.Unlock()

	reply, err := s.chat.Send(ctx, message)
	if err != nil {
		return "", apperr.Provider(opSendTurn, "the co-writer did not respond", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", apperr.Provider(opSendTurn, "the co-writer returned an empty reply", nil)
	}
	return reply, nil
}

// ExtractApprovedStory は承認済みの物語を JSON で要求し、解析します。
// 解析に失敗しても会話は閉じないため、呼び出し元は承認をやり直せます。
func (s *storySession) ExtractApprovedStory(ctx context.Context) (domain.Story, error) {
	if !s.mu.TryLock() {
		return domain.Story{}, ErrSessionBusy
	}
	defer s.mu.Unlock()

	prompt, err := s.prompts.Build(prompts.ModeStoryExtract, prompts.NewTemplateData())
	if err != nil {
		return domain.Story{}, err
	}

	raw, err := s.chat.Send(ctx, prompt)
	if err != nil {
		return domain.Story{}, apperr.Provider(opExtractApprovedStory, "the co-writer did not return the final story", err)
	}
	return ParseStory(raw)
}

// ParseStory はモデルの応答から Story を取り出します。
// ```json ... ``` のコードブロックで囲まれていても構いません。
func ParseStory(raw string) (domain.Story, error) {
	var story domain.Story
	rawJSON := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(rawJSON), &story); err != nil {
		return domain.Story{}, apperr.Parse(opExtractApprovedStory,
			"There was an issue finalizing the story. Please try approving again.",
			fmt.Errorf("応答に含まれるJSONの解析に失敗しました (応答抜粋: %q): %w", truncateString(raw, 200), err))
	}
	if err := story.Validate(); err != nil {
		return domain.Story{}, apperr.Parse(opExtractApprovedStory,
			"There was an issue finalizing the story. Please try approving again.", err)
	}
	return story, nil
}

// stripCodeFence はコードブロックがあればその中身を、なければ前後の空白を除いた全体を返します。
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := jsonBlockRegex.FindStringSubmatch(raw); len(m) > 1 {
		return m[1]
	}
	return raw
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
