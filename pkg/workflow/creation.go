package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/progress"
)

// CreatePages は工程4で 16 ページを生成し、すべて揃った場合だけ工程5に進みます。
// 進捗は Snapshot の Progress と Status、および OnChange で観測できます。
func (c *Controller) CreatePages(ctx context.Context) error {
	release, err := c.begin("CreatePages", StageCreationEngine)
	if err != nil {
		return err
	}
	defer release()

	c.mu.RLock()
	story := c.project.Story.Clone()
	description := c.project.Character.Description
	c.mu.RUnlock()

	c.tracker.Reset()
	pages, err := c.client.RenderStoryPages(ctx, story, description, func(u progress.Update) {
		c.tracker.Push(u)
	})
	if err != nil {
		return c.fail(ctx, StageCreationEngine, msgCreatePages, err)
	}
	if err := pages.Validate(); err != nil {
		return c.fail(ctx, StageCreationEngine, msgCreatePages, apperr.Provider("createPages", err.Error(), nil))
	}

	c.mu.Lock()
	c.project.Pages = pages.Clone()
	c.mu.Unlock()
	c.advance(ctx, StageAnimate)
	c.tracker.Push(progress.Update{Percent: 100, Status: "Your comic book is ready!"})
	return nil
}

// Animate は indices（0 始まりのページインデックス）で指定された4ページを、指定された順に動画化します。
// 成功した動画はその都度ページに反映されるため、途中で失敗しても反映済みのページは保持されます。
// 失敗した時点で残りのページは試みず、失敗したページの番号を持つ AnimationError を返します。
func (c *Controller) Animate(ctx context.Context, indices []int) error {
	release, err := c.begin("Animate", StageAnimate)
	if err != nil {
		return err
	}
	defer release()

	// 1. 選択の検証と、選択外のページのアニメーション解除
	c.mu.Lock()
	if err := c.project.Pages.ValidateSelection(indices); err != nil {
		c.mu.Unlock()
		return c.fail(ctx, StageAnimate, msgSelectPages, apperr.Precondition("animate", err.Error()))
	}
	selected := make(map[int]bool, len(indices))
	for _, idx := range indices {
		selected[idx] = true
	}
	for i := range c.project.Pages {
		if !selected[i] {
			c.project.Pages[i].Animate = false
			c.project.Pages[i].Video = domain.Artifact{}
		}
	}
	c.mu.Unlock()

	// 2. 指定順に1本ずつ生成
	c.tracker.Reset()
	total := len(indices)
	for k, idx := range indices {
		pageNumber := idx + 1
		c.tracker.Push(progress.Report(k, total, progress.Starting,
			fmt.Sprintf(statusGeneratingClip, k+1, total, pageNumber)))

		c.mu.RLock()
		page := c.project.Pages[idx]
		c.mu.RUnlock()

		video, err := c.client.RenderVideoForPage(ctx, page)
		if err != nil {
			return c.failAnimation(ctx, pageNumber, err)
		}

		c.mu.Lock()
		c.project.Pages[idx].Video = video
		c.project.Pages[idx].Animate = true
		c.mu.Unlock()
		c.tracker.Push(progress.Report(k, total, progress.Complete,
			fmt.Sprintf("Video for page %d is ready.", pageNumber)))
		slog.InfoContext(ctx, "ページの動画を反映しました", "page", pageNumber, "done", k+1, "total", total)

		// 3. 動画エンジンのクールダウン（最後の1本の後は待たない）
		if k < total-1 {
			c.tracker.Status(fmt.Sprintf(statusVideoCoolDown, formatSeconds(c.videoPacing.Delay.Seconds())))
		}
		if _, err := c.videoPacing.After(ctx, k, total); err != nil {
			return c.fail(ctx, StageAnimate, "Animation was interrupted. Please try again.", err)
		}
	}

	c.advance(ctx, StagePremiere)
	c.tracker.Push(progress.Update{Percent: 100, Status: "All videos are ready!"})
	return nil
}

func (c *Controller) failAnimation(ctx context.Context, pageNumber int, err error) error {
	message := fmt.Sprintf(msgAnimationFailed, pageNumber, apperr.Classify(err))
	c.mu.Lock()
	c.lastErr = message
	c.mu.Unlock()
	slog.ErrorContext(ctx, "動画の生成に失敗しました", "page", pageNumber, "error", err)
	c.tracker.Status(message)
	return &AnimationError{PageNumber: pageNumber, Message: message, Err: err}
}

// Finalize は最終工程の仕上げを行い、完了フラグを立てます。完了後に呼んでも何もしません。
func (c *Controller) Finalize(ctx context.Context) error {
	release, err := c.begin("Finalize", StagePremiere)
	if err != nil {
		return err
	}
	defer release()

	c.mu.RLock()
	done := c.finalized
	c.mu.RUnlock()
	if done {
		return nil
	}

	c.tracker.Status("Finalizing your comic book movie...")
	if err := c.sleeper.Sleep(ctx, c.finalizeDelay); err != nil {
		return c.fail(ctx, StagePremiere, "Finalizing was interrupted. Please try again.", err)
	}

	c.mu.Lock()
	c.finalized = true
	c.mu.Unlock()
	c.tracker.Push(progress.Update{Percent: 100, Status: "Your comic book movie is complete!"})
	return nil
}

func formatSeconds(sec float64) string {
	return fmt.Sprintf("%gs", sec)
}
