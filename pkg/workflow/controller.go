package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/generator"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
	"github.com/shouni/go-comic-movie-kit/pkg/progress"
	"github.com/shouni/go-comic-movie-kit/pkg/prompts"
)

// DefaultFinalizeDelay は最終工程の仕上げ待ちの長さです。
const DefaultFinalizeDelay = 3 * time.Second

const (
	msgCreateCharacter   = "Failed to create character. Please try again."
	msgRetryCharacter    = "Failed to generate a new character. Please try again."
	msgOpenStoryboard    = "Failed to start the storyboard chat. Please try again."
	msgChatNotOpen       = "The storyboard chat is not open yet. Please try again."
	msgCoWriterNoReply   = "The co-writer did not respond. Please try again."
	msgFinalizeStory     = "There was an issue finalizing the story. Please try approving again."
	msgCreatePages       = "Failed to generate story pages. Please go back and try again."
	msgSelectPages       = "Please select exactly 4 distinct pages to animate."
	msgAnimationFailed   = "Failed to generate video for page %d. %s"
	statusVideoCoolDown  = "Pausing for %s to cool down the video engine..."
	statusGeneratingClip = "Generating video %d of %d for page %d..."
)

// Args は Controller の構築に必要な依存関係です。
type Args struct {
	Client generator.Client
	// Prompts が nil の場合は埋め込みテンプレートのビルダーを使います。
	Prompts prompts.PromptBuilder
	// Sleeper が nil の場合は実時間で待機します。
	Sleeper       pacing.Sleeper
	VideoDelay    time.Duration
	FinalizeDelay time.Duration
	// OnChange は状態が変わるたびにスナップショットを受け取ります。
	OnChange func(Snapshot)
}

// Snapshot は Controller の状態の読み取り専用コピーです。
type Snapshot struct {
	Stage     Stage
	Project   domain.ProjectState
	Messages  []domain.ChatMessage
	ChatOpen  bool
	Progress  float64
	Status    string
	LastError string
	Finalized bool
}

// Controller は6つの工程を順に進める有限状態機械で、プロジェクト状態の唯一の所有者です。
// 操作は直列化され、実行中に別の操作を呼ぶと ErrBusy を返します。
type Controller struct {
	client        generator.Client
	prompts       prompts.PromptBuilder
	sleeper       pacing.Sleeper
	videoPacing   pacing.Policy
	finalizeDelay time.Duration
	tracker       *progress.Tracker
	onChange      func(Snapshot)

	opMu sync.Mutex

	mu        sync.RWMutex
	stage     Stage
	project   domain.ProjectState
	messages  []domain.ChatMessage
	session   generator.StorySession
	lastErr   string
	finalized bool
}

// New は工程1から始まる Controller を生成します。
func New(args Args) (*Controller, error) {
	if args.Client == nil {
		return nil, fmt.Errorf("generation client は必須です")
	}

	pb := args.Prompts
	if pb == nil {
		b, err := prompts.NewTextPromptBuilder()
		if err != nil {
			return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
		}
		pb = b
	}

	sleeper := args.Sleeper
	if sleeper == nil {
		sleeper = pacing.TimerSleeper{}
	}
	videoDelay := args.VideoDelay
	if videoDelay <= 0 {
		videoDelay = pacing.VideoDelay
	}
	finalizeDelay := args.FinalizeDelay
	if finalizeDelay <= 0 {
		finalizeDelay = DefaultFinalizeDelay
	}

	c := &Controller{
		client:        args.Client,
		prompts:       pb,
		sleeper:       sleeper,
		videoPacing:   pacing.Policy{Delay: videoDelay, Sleeper: sleeper},
		finalizeDelay: finalizeDelay,
		onChange:      args.OnChange,
		stage:         StageSpark,
	}
	c.tracker = progress.NewTracker(func(progress.Update) { c.publish() })
	return c, nil
}

// Snapshot は現在の状態のディープコピーを返します。
func (c *Controller) Snapshot() Snapshot {
	cur := c.tracker.Current()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Stage:     c.stage,
		Project:   c.project.Clone(),
		Messages:  append([]domain.ChatMessage(nil), c.messages...),
		ChatOpen:  c.session != nil,
		Progress:  cur.Percent,
		Status:    cur.Status,
		LastError: c.lastErr,
		Finalized: c.finalized,
	}
}

func (c *Controller) publish() {
	if c.onChange != nil {
		c.onChange(c.Snapshot())
	}
}

// begin は操作の実行権を取得し、現在の工程が want であることを確認します。
func (c *Controller) begin(op string, want Stage) (func(), error) {
	if !c.opMu.TryLock() {
		return nil, ErrBusy
	}
	c.mu.RLock()
	cur := c.stage
	c.mu.RUnlock()
	if cur != want {
		c.opMu.Unlock()
		return nil, wrongStage(op, want, cur)
	}
	return c.opMu.Unlock, nil
}

// fail は失敗を記録し、工程を変えずに利用者向けのエラーを返します。
func (c *Controller) fail(ctx context.Context, stage Stage, message string, err error) error {
	c.mu.Lock()
	c.lastErr = message
	c.mu.Unlock()
	slog.ErrorContext(ctx, "工程の処理に失敗しました", "stage", stage.String(), "message", message, "error", err)
	c.tracker.Status(message)
	return &StageError{Stage: stage, Message: message, Err: err}
}

func (c *Controller) advance(ctx context.Context, to Stage) {
	c.mu.Lock()
	c.stage = to
	c.lastErr = ""
	c.mu.Unlock()
	slog.InfoContext(ctx, "次の工程に進みました", "stage", to.String())
}

// SubmitIdea は工程1でアイデアを受け取り、キャラクターを生成して工程2に進みます。
func (c *Controller) SubmitIdea(ctx context.Context, idea domain.Idea) error {
	release, err := c.begin("SubmitIdea", StageSpark)
	if err != nil {
		return err
	}
	defer release()

	if err := idea.Validate(); err != nil {
		return c.fail(ctx, StageSpark, msgCreateCharacter, apperr.Precondition("submitIdea", err.Error()))
	}
	idea = idea.Clone()

	c.tracker.Status("Creating your character...")
	character, err := c.deriveCharacter(ctx, idea)
	if err != nil {
		return c.fail(ctx, StageSpark, msgCreateCharacter, err)
	}

	c.mu.Lock()
	c.project.Idea = &idea
	c.project.Character = &character
	c.mu.Unlock()
	c.advance(ctx, StageCharacterLab)
	c.tracker.Status("Your character is ready!")
	return nil
}

// RetryCharacter は保存済みのアイデアからキャラクターを作り直します。
// 失敗した場合は以前のキャラクターを保持します。
func (c *Controller) RetryCharacter(ctx context.Context) error {
	release, err := c.begin("RetryCharacter", StageCharacterLab)
	if err != nil {
		return err
	}
	defer release()

	c.mu.RLock()
	idea := c.project.Idea.Clone()
	c.mu.RUnlock()

	c.tracker.Status("Creating a new character...")
	character, err := c.deriveCharacter(ctx, idea)
	if err != nil {
		return c.fail(ctx, StageCharacterLab, msgRetryCharacter, err)
	}

	c.mu.Lock()
	c.project.Character = &character
	c.lastErr = ""
	c.mu.Unlock()
	c.tracker.Status("Your new character is ready!")
	return nil
}

// deriveCharacter は説明文と設定画を順に生成します。
func (c *Controller) deriveCharacter(ctx context.Context, idea domain.Idea) (domain.Character, error) {
	desc, err := c.client.DescribeCharacter(ctx, idea)
	if err != nil {
		return domain.Character{}, err
	}
	sheet, err := c.client.RenderCharacterSheet(ctx, desc)
	if err != nil {
		return domain.Character{}, err
	}
	character := domain.Character{Description: desc, Sheet: sheet}
	if err := character.Validate(); err != nil {
		return domain.Character{}, apperr.Provider("deriveCharacter", err.Error(), nil)
	}
	return character, nil
}

// ApproveCharacter はキャラクターを確定して工程3に進み、ストーリーボードの会話を開始します。
// 会話の開始に失敗しても工程3のままで、OpenStoryboard で再試行できます。
func (c *Controller) ApproveCharacter(ctx context.Context) error {
	release, err := c.begin("ApproveCharacter", StageCharacterLab)
	if err != nil {
		return err
	}
	defer release()

	c.advance(ctx, StageStoryboard)
	c.publish()
	return c.openStoryboard(ctx)
}

// OpenStoryboard は工程3で会話がまだ開いていない場合に開始します。開いている場合は何もしません。
func (c *Controller) OpenStoryboard(ctx context.Context) error {
	release, err := c.begin("OpenStoryboard", StageStoryboard)
	if err != nil {
		return err
	}
	defer release()

	c.mu.RLock()
	open := c.session != nil
	c.mu.RUnlock()
	if open {
		return nil
	}
	return c.openStoryboard(ctx)
}

func (c *Controller) openStoryboard(ctx context.Context) error {
	c.mu.RLock()
	description := c.project.Character.Description
	c.mu.RUnlock()

	// 1. ペルソナと最初のターンの組み立て
	persona, err := c.prompts.Build(prompts.ModeStoryPersona, prompts.NewTemplateData())
	if err != nil {
		return c.fail(ctx, StageStoryboard, msgOpenStoryboard, err)
	}
	seedData := prompts.NewTemplateData()
	seedData.Description = description
	seed, err := c.prompts.Build(prompts.ModeStorySeed, seedData)
	if err != nil {
		return c.fail(ctx, StageStoryboard, msgOpenStoryboard, err)
	}

	// 2. 会話の開始と提案の取得
	c.tracker.Status("Starting the storyboard chat...")
	session, err := c.client.OpenStorySession(ctx, persona)
	if err != nil {
		return c.fail(ctx, StageStoryboard, msgOpenStoryboard, err)
	}
	reply, err := session.SendTurn(ctx, seed)
	if err != nil {
		return c.fail(ctx, StageStoryboard, msgOpenStoryboard, err)
	}

	c.mu.Lock()
	c.session = session
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleModel, Text: reply})
	c.lastErr = ""
	c.mu.Unlock()
	c.tracker.Status("Chat with your co-writer to refine the story.")
	return nil
}

// SendMessage は会話を1ターン進めます。メッセージに承認フレーズが含まれていれば
// 物語を構造化データとして抽出し、成功すれば工程4に進みます。
// 空白だけのメッセージは送信しません。
func (c *Controller) SendMessage(ctx context.Context, text string) (reply string, approved bool, err error) {
	release, err := c.begin("SendMessage", StageStoryboard)
	if err != nil {
		return "", false, err
	}
	defer release()

	if strings.TrimSpace(text) == "" {
		return "", false, nil
	}

	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return "", false, c.fail(ctx, StageStoryboard, msgChatNotOpen, apperr.Precondition("sendMessage", "storyboard session is not open"))
	}

	// 1. 通常のターン
	c.mu.Lock()
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleUser, Text: text})
	c.mu.Unlock()
	c.publish()

	reply, err = session.SendTurn(ctx, text)
	if err != nil {
		return "", false, c.fail(ctx, StageStoryboard, msgCoWriterNoReply, err)
	}
	c.mu.Lock()
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleModel, Text: reply})
	c.lastErr = ""
	c.mu.Unlock()
	c.publish()

	if !domain.ContainsApproval(text) {
		return reply, false, nil
	}

	// 2. 承認フレーズによる構造化抽出
	c.tracker.Status("Finalizing your story...")
	story, err := session.ExtractApprovedStory(ctx)
	if err != nil {
		return reply, false, c.fail(ctx, StageStoryboard, msgFinalizeStory, err)
	}

	c.mu.Lock()
	c.project.Story = &story
	c.mu.Unlock()
	c.advance(ctx, StageCreationEngine)
	c.tracker.Status(fmt.Sprintf("Story approved: %s", story.Title))
	return reply, true, nil
}
