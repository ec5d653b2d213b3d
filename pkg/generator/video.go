package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/poller"
	"github.com/shouni/go-comic-movie-kit/pkg/prompts"
)

const opRenderVideoForPage = "renderVideoForPage"

// RenderVideoForPage はページ画像を種にした動画ジョブを投入し、完了まで待って成果物を保存します。
// 画像のないページはネットワークに触れる前に PreconditionError になります。
// VideoTimeout を超えた場合は poller.MsgTimedOut を持つ ProviderError になります。
func (g *Generator) RenderVideoForPage(ctx context.Context, page domain.Page) (domain.Artifact, error) {
	// 1. 前提条件の確認
	if page.Image.IsZero() {
		return domain.Artifact{}, apperr.Precondition(opRenderVideoForPage,
			fmt.Sprintf("page %d has no image to animate", page.PageNumber))
	}
	imageData, err := g.store.Get(page.Image)
	if err != nil {
		return domain.Artifact{}, apperr.Wrap(apperr.ErrPrecondition, opRenderVideoForPage,
			fmt.Sprintf("the image for page %d is not available", page.PageNumber), err)
	}

	prompt, err := g.build(prompts.ModePageVideo, func(d *prompts.TemplateData) { d.Page = page })
	if err != nil {
		return domain.Artifact{}, err
	}

	if g.videoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.videoTimeout)
		defer cancel()
	}

	// 2. ジョブの投入
	job, err := g.provider.SubmitVideo(ctx, adapters.VideoRequest{
		Prompt: prompt,
		Image:  adapters.Media{Data: imageData, MIMEType: page.Image.MIMEType},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Artifact{}, apperr.Provider(opRenderVideoForPage, poller.MsgTimedOut, err)
		}
		return domain.Artifact{}, apperr.Provider(opRenderVideoForPage, "failed to start video generation", err)
	}
	slog.InfoContext(ctx, "動画生成ジョブを投入しました", "page", page.PageNumber, "job", job.ID)

	// 3. 完了待ちと取得
	data, mimeType, err := g.poller.Run(ctx, job)
	if err != nil {
		return domain.Artifact{}, err
	}

	a, err := g.store.Put(data, mimeType)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("動画の保存に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "動画を取得しました", "page", page.PageNumber, "ref", a.Ref, "size", a.Size)
	return a, nil
}
