package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/adapters/adapterstest"
	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/asset"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/generator"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepLog struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepLog) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return nil
}

func (s *sleepLog) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == d {
			n++
		}
	}
	return n
}

type harness struct {
	ctrl     *Controller
	provider *adapterstest.Provider
	store    *asset.Store
	sleeps   *sleepLog

	mu        sync.Mutex
	recording bool
	percents  []float64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		provider: &adapterstest.Provider{},
		store:    asset.NewStore(0),
		sleeps:   &sleepLog{},
	}
	gen, err := generator.New(generator.Args{
		Provider:       h.provider,
		Store:          h.store,
		Fetcher:        &adapterstest.Fetcher{},
		Sleeper:        h.sleeps,
		PageImageDelay: pacing.PageImageDelay,
		PollInterval:   10 * time.Second,
	})
	require.NoError(t, err)

	ctrl, err := New(Args{
		Client:  gen,
		Sleeper: h.sleeps,
		OnChange: func(s Snapshot) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.recording {
				h.percents = append(h.percents, s.Progress)
			}
		},
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) record(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recording = on
	if on {
		h.percents = nil
	}
}

// driveTo は既定の応答で Controller を stage まで進めます。
func (h *harness) driveTo(t *testing.T, stage Stage) {
	t.Helper()
	ctx := context.Background()
	if stage >= StageCharacterLab {
		require.NoError(t, h.ctrl.SubmitIdea(ctx, domain.NewTextIdea("a brave astronaut squirrel")))
	}
	if stage >= StageStoryboard {
		require.NoError(t, h.ctrl.ApproveCharacter(ctx))
	}
	if stage >= StageCreationEngine {
		_, approved, err := h.ctrl.SendMessage(ctx, "I approve the story")
		require.NoError(t, err)
		require.True(t, approved)
	}
	if stage >= StageAnimate {
		require.NoError(t, h.ctrl.CreatePages(ctx))
	}
	if stage >= StagePremiere {
		require.NoError(t, h.ctrl.Animate(ctx, []int{0, 5, 10, 15}))
	}
	require.Equal(t, stage, h.ctrl.Snapshot().Stage)
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(Args{})
	assert.Error(t, err)
}

func TestController_SquirrelEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.ctrl

	// 1. Spark
	require.NoError(t, c.SubmitIdea(ctx, domain.NewTextIdea("a brave astronaut squirrel")))
	snap := c.Snapshot()
	assert.Equal(t, StageCharacterLab, snap.Stage)
	require.NotNil(t, snap.Project.Character)
	assert.NotEmpty(t, snap.Project.Character.Description)
	assert.False(t, snap.Project.Character.Sheet.IsZero())

	// 2. Character Lab
	require.NoError(t, c.ApproveCharacter(ctx))
	snap = c.Snapshot()
	assert.Equal(t, StageStoryboard, snap.Stage)
	assert.True(t, snap.ChatOpen)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, domain.RoleModel, snap.Messages[0].Role)
	seed := h.provider.ChatMessages()[0]
	assert.Contains(t, seed, "My story is about: "+adapterstest.CharacterDescription)

	// 3. Storyboard
	reply, approved, err := c.SendMessage(ctx, "Can the moon be made of cheese?")
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, adapterstest.ProposalReply, reply)

	_, approved, err = c.SendMessage(ctx, "Perfect. I Approve The Story!")
	require.NoError(t, err)
	assert.True(t, approved)
	snap = c.Snapshot()
	assert.Equal(t, StageCreationEngine, snap.Stage)
	require.NotNil(t, snap.Project.Story)
	assert.Equal(t, adapterstest.StoryTitle, snap.Project.Story.Title)
	assert.Len(t, snap.Messages, 5)

	// 4. Creation Engine
	h.record(true)
	require.NoError(t, c.CreatePages(ctx))
	h.record(false)
	snap = c.Snapshot()
	assert.Equal(t, StageAnimate, snap.Stage)
	require.NoError(t, snap.Project.Pages.Validate())
	assert.Equal(t, 100.0, snap.Progress)
	assert.Equal(t, 15, h.sleeps.count(pacing.PageImageDelay))

	require.GreaterOrEqual(t, len(h.percents), 32)
	prev := 0.0
	for _, p := range h.percents {
		assert.GreaterOrEqual(t, p, prev)
		assert.LessOrEqual(t, p, 100.0)
		prev = p
	}

	// 5. Animate
	require.NoError(t, c.Animate(ctx, []int{15, 0, 5, 10}))
	snap = c.Snapshot()
	assert.Equal(t, StagePremiere, snap.Stage)
	animated := snap.Project.Pages.Animated()
	require.Len(t, animated, 4)
	for _, p := range animated {
		assert.True(t, p.Animate)
	}
	assert.Equal(t, 3, h.sleeps.count(pacing.VideoDelay))

	videos := h.provider.VideoRequests()
	require.Len(t, videos, 4)
	assert.Contains(t, videos[0].Prompt, "Scene 16: Nutty explores.")
	assert.Contains(t, videos[1].Prompt, "Scene 1: Nutty explores.")

	// 6. Premiere
	require.NoError(t, c.Finalize(ctx))
	snap = c.Snapshot()
	assert.True(t, snap.Finalized)
	assert.Equal(t, 1, h.sleeps.count(DefaultFinalizeDelay))
	require.NoError(t, c.Finalize(ctx))
	assert.Equal(t, 1, h.sleeps.count(DefaultFinalizeDelay))
}

func TestController_SubmitIdeaFailureStaysInSpark(t *testing.T) {
	h := newHarness(t)
	h.provider.ImageFunc = func(context.Context, adapters.ImageRequest) ([]adapters.ImageResponse, error) {
		return nil, nil
	}

	err := h.ctrl.SubmitIdea(context.Background(), domain.NewTextIdea("a squirrel"))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "Failed to create character. Please try again.", stageErr.Message)
	assert.ErrorIs(t, err, apperr.ErrProvider)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StageSpark, snap.Stage)
	assert.Nil(t, snap.Project.Character)
	assert.Equal(t, stageErr.Message, snap.LastError)
}

func TestController_RetryCharacter(t *testing.T) {
	ctx := context.Background()

	t.Run("元のアイデアから作り直すこと", func(t *testing.T) {
		h := newHarness(t)
		n := 0
		h.provider.TextFunc = func(_ context.Context, req adapters.TextRequest) (string, error) {
			n++
			if n == 1 {
				return "first squirrel", nil
			}
			return "second squirrel", nil
		}
		h.driveTo(t, StageCharacterLab)
		require.NoError(t, h.ctrl.RetryCharacter(ctx))

		snap := h.ctrl.Snapshot()
		assert.Equal(t, StageCharacterLab, snap.Stage)
		assert.Equal(t, "second squirrel", snap.Project.Character.Description)

		reqs := h.provider.TextRequests()
		require.Len(t, reqs, 2)
		assert.Equal(t, reqs[0].Prompt, reqs[1].Prompt)
		assert.NotContains(t, reqs[1].Prompt, "first squirrel")
	})

	t.Run("失敗しても以前のキャラクターを保持すること", func(t *testing.T) {
		h := newHarness(t)
		h.driveTo(t, StageCharacterLab)
		before := h.ctrl.Snapshot().Project.Character

		h.provider.TextFunc = func(context.Context, adapters.TextRequest) (string, error) {
			return "", errors.New("503 unavailable")
		}
		err := h.ctrl.RetryCharacter(ctx)
		require.Error(t, err)
		assert.Equal(t, "Failed to generate a new character. Please try again.", err.Error())

		snap := h.ctrl.Snapshot()
		assert.Equal(t, StageCharacterLab, snap.Stage)
		assert.Equal(t, *before, *snap.Project.Character)
	})
}

func TestController_StoryboardRecovery(t *testing.T) {
	ctx := context.Background()

	t.Run("会話の開始に失敗しても OpenStoryboard で再試行できること", func(t *testing.T) {
		h := newHarness(t)
		h.driveTo(t, StageCharacterLab)
		h.provider.StartFunc = func(context.Context, string) error { return errors.New("quota") }

		err := h.ctrl.ApproveCharacter(ctx)
		require.Error(t, err)
		snap := h.ctrl.Snapshot()
		assert.Equal(t, StageStoryboard, snap.Stage)
		assert.False(t, snap.ChatOpen)

		_, _, err = h.ctrl.SendMessage(ctx, "hello")
		assert.ErrorIs(t, err, apperr.ErrPrecondition)

		h.provider.StartFunc = nil
		require.NoError(t, h.ctrl.OpenStoryboard(ctx))
		assert.True(t, h.ctrl.Snapshot().ChatOpen)
		require.NoError(t, h.ctrl.OpenStoryboard(ctx))
		assert.Len(t, h.provider.SystemPrompts(), 1)
	})

	t.Run("解析に失敗しても会話を保持し、再度の承認で進めること", func(t *testing.T) {
		h := newHarness(t)
		h.driveTo(t, StageStoryboard)
		extracts := 0
		h.provider.ChatFunc = func(_ context.Context, msg string) (string, error) {
			if !adapterstest.IsExtractRequest(msg) {
				return "Lovely!", nil
			}
			extracts++
			if extracts == 1 {
				return "Here is your story, titled Nutty in Space.", nil
			}
			return adapterstest.StoryJSON, nil
		}

		_, approved, err := h.ctrl.SendMessage(ctx, "i approve the story")
		require.ErrorIs(t, err, apperr.ErrParse)
		assert.False(t, approved)
		assert.Equal(t, "There was an issue finalizing the story. Please try approving again.", err.Error())
		snap := h.ctrl.Snapshot()
		assert.Equal(t, StageStoryboard, snap.Stage)
		assert.True(t, snap.ChatOpen)

		reply, approved, err := h.ctrl.SendMessage(ctx, "one more tweak please")
		require.NoError(t, err)
		assert.False(t, approved)
		assert.Equal(t, "Lovely!", reply)

		_, approved, err = h.ctrl.SendMessage(ctx, "OK, I APPROVE THE STORY")
		require.NoError(t, err)
		assert.True(t, approved)
		assert.Equal(t, StageCreationEngine, h.ctrl.Snapshot().Stage)

		_, _, err = h.ctrl.SendMessage(ctx, "i approve the story")
		assert.ErrorIs(t, err, ErrWrongStage)
		assert.Equal(t, 2, extracts)
	})

	t.Run("空白だけのメッセージは送らないこと", func(t *testing.T) {
		h := newHarness(t)
		h.driveTo(t, StageStoryboard)
		before := len(h.provider.ChatMessages())

		reply, approved, err := h.ctrl.SendMessage(ctx, "   ")
		require.NoError(t, err)
		assert.Empty(t, reply)
		assert.False(t, approved)
		assert.Len(t, h.provider.ChatMessages(), before)
	})
}

func TestController_CreatePagesFailureStaysInCreationEngine(t *testing.T) {
	h := newHarness(t)
	h.driveTo(t, StageCreationEngine)
	h.provider.TextFunc = func(context.Context, adapters.TextRequest) (string, error) {
		return adapterstest.PagesJSON(10), nil
	}

	err := h.ctrl.CreatePages(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to generate story pages. Please go back and try again.", err.Error())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StageCreationEngine, snap.Stage)
	assert.Empty(t, snap.Project.Pages)
}

func TestController_AnimateSecondVideoFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.driveTo(t, StageAnimate)
	before := h.ctrl.Snapshot().Project.Pages
	h.provider.VideoFailures = map[int]string{2: "Video quota exceeded."}

	selection := []int{3, 7, 1, 12}
	err := h.ctrl.Animate(ctx, selection)

	var animErr *AnimationError
	require.ErrorAs(t, err, &animErr)
	assert.Equal(t, 8, animErr.PageNumber)
	assert.Equal(t, "Failed to generate video for page 8. Video quota exceeded.", animErr.Message)
	assert.ErrorIs(t, err, apperr.ErrProvider)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StageAnimate, snap.Stage)
	assert.Equal(t, animErr.Message, snap.LastError)

	pages := snap.Project.Pages
	assert.False(t, pages[3].Video.IsZero())
	assert.True(t, pages[3].Animate)
	for _, idx := range selection[1:] {
		assert.Equal(t, before[idx], pages[idx], "page index %d must be untouched", idx)
	}
	assert.Len(t, h.provider.VideoRequests(), 2)
	assert.Equal(t, 1, h.sleeps.count(pacing.VideoDelay))
}

func TestController_AnimateRejectsBadSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.driveTo(t, StageAnimate)

	tests := []struct {
		name    string
		indices []int
	}{
		{"3 ページ", []int{0, 1, 2}},
		{"5 ページ", []int{0, 1, 2, 3, 4}},
		{"重複", []int{0, 1, 1, 2}},
		{"範囲外", []int{0, 1, 2, 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.ctrl.Animate(ctx, tt.indices)
			assert.ErrorIs(t, err, apperr.ErrPrecondition)
			assert.Equal(t, StageAnimate, h.ctrl.Snapshot().Stage)
		})
	}
	assert.Empty(t, h.provider.VideoRequests())
}

func TestController_WrongStage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.ErrorIs(t, h.ctrl.CreatePages(ctx), ErrWrongStage)
	assert.ErrorIs(t, h.ctrl.ApproveCharacter(ctx), ErrWrongStage)
	assert.ErrorIs(t, h.ctrl.Finalize(ctx), ErrWrongStage)
	assert.ErrorIs(t, h.ctrl.Animate(ctx, []int{0, 1, 2, 3}), ErrWrongStage)
	_, _, err := h.ctrl.SendMessage(ctx, "hi")
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestController_RejectsConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.provider.TextFunc = func(context.Context, adapters.TextRequest) (string, error) {
		close(entered)
		<-release
		return adapterstest.CharacterDescription, nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.ctrl.SubmitIdea(ctx, domain.NewTextIdea("a squirrel"))
	}()
	<-entered

	assert.ErrorIs(t, h.ctrl.SubmitIdea(ctx, domain.NewTextIdea("another")), ErrBusy)
	assert.Equal(t, StageSpark, h.ctrl.Snapshot().Stage)

	close(release)
	require.NoError(t, <-errCh)
	assert.Equal(t, StageCharacterLab, h.ctrl.Snapshot().Stage)
}

func TestController_SnapshotIsACopy(t *testing.T) {
	h := newHarness(t)
	h.driveTo(t, StageAnimate)

	snap := h.ctrl.Snapshot()
	snap.Project.Pages[0].Text = "changed"
	snap.Project.Story.Title = "changed"
	snap.Messages[0].Text = "changed"

	again := h.ctrl.Snapshot()
	assert.NotEqual(t, "changed", again.Project.Pages[0].Text)
	assert.NotEqual(t, "changed", again.Project.Story.Title)
	assert.NotEqual(t, "changed", again.Messages[0].Text)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "Spark", StageSpark.String())
	assert.Equal(t, "Premiere", StagePremiere.String())
	assert.Equal(t, "Stage(9)", Stage(9).String())
}
