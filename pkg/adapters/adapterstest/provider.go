// Package adapterstest は adapters.Provider のテスト用実装を提供します。
package adapterstest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/poller"
)

const (
	// CharacterDescription は既定で返すキャラクターの説明です。
	CharacterDescription = "A small red squirrel in a shiny silver spacesuit with a bubble helmet and a green scarf."
	// Transcript は音声入力に対して既定で返す文字起こしです。
	Transcript = "a brave astronaut squirrel"
	// StoryTitle は既定の物語タイトルです。
	StoryTitle = "Nutty in Space"
	// ProposalReply は通常の会話ターンで既定で返す返答です。
	ProposalReply = "How about \"Nutty in Space\"? Cover: Nutty waving from a rocket window. Chapters: Liftoff, The Moon Garden, Asteroid Trouble, Home Sweet Tree. Say 'I approve the story' when you're happy!"
)

// StoryJSON は抽出要求に対して既定で返す物語 JSON です（コードブロック付き）。
var StoryJSON = "```json\n" + `{"title":"Nutty in Space","coverConcept":"Nutty waving from a rocket window","chapters":[{"title":"Liftoff"},{"title":"The Moon Garden"},{"title":"Asteroid Trouble"},{"title":"Home Sweet Tree"}]}` + "\n```"

// Provider はスクリプト可能な adapters.Provider です。各 Func を設定すると既定の応答を上書きできます。
type Provider struct {
	TextFunc   func(ctx context.Context, req adapters.TextRequest) (string, error)
	ImageFunc  func(ctx context.Context, req adapters.ImageRequest) ([]adapters.ImageResponse, error)
	ChatFunc   func(ctx context.Context, message string) (string, error)
	StartFunc  func(ctx context.Context, systemInstruction string) error
	SubmitFunc func(ctx context.Context, req adapters.VideoRequest) error
	// VideoFailures はジョブの投入順（1 始まり）ごとにプロバイダ側の失敗を報告させます。
	VideoFailures map[int]string
	// MissingResults は投入順（1 始まり）ごとに完了しても結果の所在を返さないようにします。
	MissingResults map[int]bool
	// PendingPolls は完了を報告するまでに「未完了」を返す回数です。
	PendingPolls int

	mu             sync.Mutex
	textRequests   []adapters.TextRequest
	imageRequests  []adapters.ImageRequest
	systemPrompts  []string
	chatMessages   []string
	videoRequests  []adapters.VideoRequest
	checks         map[string]int
	submittedCount int
}

var _ adapters.Provider = (*Provider)(nil)

// GenerateText はスキーマ付きなら 16 ページの JSON、添付ありなら文字起こし、それ以外はキャラクターの説明を返します。
func (p *Provider) GenerateText(ctx context.Context, req adapters.TextRequest) (string, error) {
	p.mu.Lock()
	p.textRequests = append(p.textRequests, req)
	p.mu.Unlock()

	if p.TextFunc != nil {
		return p.TextFunc(ctx, req)
	}
	switch {
	case req.Schema != nil:
		return PagesJSON(domain.PageCount), nil
	case len(req.Media) > 0 && strings.HasPrefix(req.Media[0].MIMEType, "audio/"):
		return Transcript, nil
	default:
		return CharacterDescription, nil
	}
}

// GenerateImages は呼び出し順に番号を振った PNG 風のバイト列を1枚返します。
func (p *Provider) GenerateImages(ctx context.Context, req adapters.ImageRequest) ([]adapters.ImageResponse, error) {
	p.mu.Lock()
	p.imageRequests = append(p.imageRequests, req)
	n := len(p.imageRequests)
	p.mu.Unlock()

	if p.ImageFunc != nil {
		return p.ImageFunc(ctx, req)
	}
	return []adapters.ImageResponse{{Data: []byte(fmt.Sprintf("png-%02d", n)), MIMEType: "image/png"}}, nil
}

// StartChat は会話を開始します。
func (p *Provider) StartChat(ctx context.Context, systemInstruction string) (adapters.ChatSession, error) {
	if p.StartFunc != nil {
		if err := p.StartFunc(ctx, systemInstruction); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	p.systemPrompts = append(p.systemPrompts, systemInstruction)
	p.mu.Unlock()
	return &chat{provider: p}, nil
}

type chat struct {
	provider *Provider
}

// Send は抽出要求には StoryJSON、それ以外には ProposalReply を返します。
func (c *chat) Send(ctx context.Context, message string) (string, error) {
	p := c.provider
	p.mu.Lock()
	p.chatMessages = append(p.chatMessages, message)
	p.mu.Unlock()

	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, message)
	}
	if IsExtractRequest(message) {
		return StoryJSON, nil
	}
	return ProposalReply, nil
}

// SubmitVideo は未完了のジョブを返します。
func (p *Provider) SubmitVideo(ctx context.Context, req adapters.VideoRequest) (poller.Job, error) {
	if p.SubmitFunc != nil {
		if err := p.SubmitFunc(ctx, req); err != nil {
			return poller.Job{}, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videoRequests = append(p.videoRequests, req)
	p.submittedCount++
	return poller.Job{ID: fmt.Sprintf("operations/video-%d", p.submittedCount), Handle: p.submittedCount}, nil
}

// CheckJob は PendingPolls 回だけ未完了を返した後、完了を返します。
func (p *Provider) CheckJob(_ context.Context, job poller.Job) (poller.Job, error) {
	n, ok := job.Handle.(int)
	if !ok {
		return job, errors.New("unknown job handle")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checks == nil {
		p.checks = make(map[string]int)
	}
	p.checks[job.ID]++
	if p.checks[job.ID] <= p.PendingPolls {
		return job, nil
	}

	job.Done = true
	switch {
	case p.VideoFailures[n] != "":
		job.Failure = p.VideoFailures[n]
	case p.MissingResults[n]:
	default:
		job.ResultURI = fmt.Sprintf("https://fake.example/videos/%d:download?alt=media", n)
	}
	return job, nil
}

// TextRequests は受け取ったテキスト生成リクエストのコピーを返します。
func (p *Provider) TextRequests() []adapters.TextRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]adapters.TextRequest(nil), p.textRequests...)
}

// ImageRequests は受け取った画像生成リクエストのコピーを返します。
func (p *Provider) ImageRequests() []adapters.ImageRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]adapters.ImageRequest(nil), p.imageRequests...)
}

// SystemPrompts は開始された会話のシステム指示を返します。
func (p *Provider) SystemPrompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.systemPrompts...)
}

// ChatMessages は会話に送られたメッセージを順に返します。
func (p *Provider) ChatMessages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.chatMessages...)
}

// VideoRequests は投入された動画ジョブの内容を返します。
func (p *Provider) VideoRequests() []adapters.VideoRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]adapters.VideoRequest(nil), p.videoRequests...)
}

// Checks はジョブごとの状態確認の回数を返します。
func (p *Provider) Checks(jobID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checks[jobID]
}

// IsExtractRequest は物語の最終 JSON を求めるメッセージかどうかを判定します。
func IsExtractRequest(message string) bool {
	return strings.Contains(message, "final approved story outline")
}

// PagesJSON は n ページ分の構造化出力を返します。ページ番号はわざと逆順に並べます。
func PagesJSON(n int) string {
	pages := make([]map[string]any, 0, n)
	for i := n; i >= 1; i-- {
		pages = append(pages, map[string]any{
			"pageNumber":      i,
			"chapter":         (i-1)/domain.PagesPerChapter + 1,
			"text":            fmt.Sprintf("Scene %d: Nutty explores.", i),
			"narrationScript": fmt.Sprintf("Narration for page %d.", i),
			"sfx":             "[SOUND of rocket engines]",
		})
	}
	b, _ := json.Marshal(map[string]any{"pages": pages})
	return string(b)
}

// Fetcher は URI を含むバイト列を返す poller.Fetcher です。
type Fetcher struct {
	Err  error
	mu   sync.Mutex
	URIs []string
}

// Fetch は "mp4:" に URI を連結したバイト列を返します。
func (f *Fetcher) Fetch(_ context.Context, uri string) ([]byte, string, error) {
	f.mu.Lock()
	f.URIs = append(f.URIs, uri)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, "", f.Err
	}
	return []byte("mp4:" + uri), "video/mp4", nil
}
