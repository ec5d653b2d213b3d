package adapters

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-movie-kit/pkg/poller"

	"google.golang.org/genai"
)

// SubmitVideo はページ画像とシーンのプロンプトから動画生成ジョブを投入します。
func (g *Gemini) SubmitVideo(ctx context.Context, req VideoRequest) (poller.Job, error) {
	if err := g.throttle(ctx); err != nil {
		return poller.Job{}, err
	}

	image := &genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType}
	op, err := g.client.Models.GenerateVideos(ctx, g.cfg.VideoModel, req.Prompt, image, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
	})
	if err != nil {
		return poller.Job{}, err
	}
	return jobFromOperation(op), nil
}

// CheckJob はオペレーションの最新状態を取得します。
func (g *Gemini) CheckJob(ctx context.Context, job poller.Job) (poller.Job, error) {
	op, ok := job.Handle.(*genai.GenerateVideosOperation)
	if !ok || op == nil {
		return job, fmt.Errorf("ジョブ %s は Gemini の動画オペレーションではありません", job.ID)
	}
	if err := g.throttle(ctx); err != nil {
		return job, err
	}

	latest, err := g.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return job, err
	}
	return jobFromOperation(latest), nil
}

// jobFromOperation は genai のオペレーションを poller.Job に写します。
func jobFromOperation(op *genai.GenerateVideosOperation) poller.Job {
	job := poller.Job{ID: op.Name, Done: op.Done, Handle: op}
	if !op.Done {
		return job
	}
	if op.Error != nil {
		if msg, ok := op.Error["message"].(string); ok && msg != "" {
			job.Failure = msg
		} else {
			job.Failure = fmt.Sprintf("video operation failed: %v", op.Error)
		}
		return job
	}
	if op.Response != nil {
		for _, gv := range op.Response.GeneratedVideos {
			if gv != nil && gv.Video != nil && gv.Video.URI != "" {
				job.ResultURI = gv.Video.URI
				break
			}
		}
	}
	return job
}
