package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
)

const (
	ffmpegCommand = "ffmpeg"

	movieWidth  = 1024
	movieHeight = 768
	movieFPS    = 30

	// MinSlideDuration は1ページを表示する最短の時間です。
	MinSlideDuration = 3 * time.Second
	// NarrationCharsPerSecond はナレーションの読み上げ速度の目安（文字/秒）です。
	NarrationCharsPerSecond = 12.5
)

// CommandRunner は外部コマンドを実行します。
type CommandRunner func(ctx context.Context, name string, args ...string) error

// defaultCommandRunner は失敗時に出力をエラーに含めます。
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// SlideDuration はナレーションの長さから1ページの表示時間を決めます。
// max(3秒, 文字数/12.5 秒) です。
func SlideDuration(narration string) time.Duration {
	chars := utf8.RuneCountInString(strings.TrimSpace(narration))
	d := time.Duration(float64(chars) / NarrationCharsPerSecond * float64(time.Second))
	if d < MinSlideDuration {
		return MinSlideDuration
	}
	return d
}

// Slideshow はページ画像（アニメーション済みのページは動画）を順に繋いだムービーを ffmpeg で作成します。
type Slideshow struct {
	blobs   BlobSource
	run     CommandRunner
	workDir string
}

// SlideshowOption は Slideshow の設定を変更します。
type SlideshowOption func(*Slideshow)

// WithCommandRunner はテスト用にコマンドの実行を差し替えます。
func WithCommandRunner(r CommandRunner) SlideshowOption {
	return func(s *Slideshow) {
		if r != nil {
			s.run = r
		}
	}
}

// WithWorkDir は中間ファイルを置くディレクトリを指定します。空の場合は OS の一時ディレクトリです。
func WithWorkDir(dir string) SlideshowOption {
	return func(s *Slideshow) {
		s.workDir = dir
	}
}

// NewSlideshow は Slideshow を生成します。
func NewSlideshow(blobs BlobSource, opts ...SlideshowOption) (*Slideshow, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob source は必須です")
	}
	s := &Slideshow{blobs: blobs, run: defaultCommandRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Render はページごとのセグメントを作成して連結し、MP4 のバイト列を返します。
func (s *Slideshow) Render(ctx context.Context, pages domain.Pages) ([]byte, error) {
	tmp, err := os.MkdirTemp(s.workDir, "slideshow-*")
	if err != nil {
		return nil, fmt.Errorf("作業ディレクトリの作成に失敗しました: %w", err)
	}
	defer os.RemoveAll(tmp)

	// 1. ページごとのセグメント
	var segments []string
	for _, p := range pages {
		seg, err := s.renderSegment(ctx, tmp, p)
		if err != nil {
			return nil, err
		}
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("ムービーに含めるページがありません")
	}

	// 2. 連結
	listPath := filepath.Join(tmp, "segments.txt")
	var list strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&list, "file '%s'\n", filepath.Base(seg))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return nil, fmt.Errorf("セグメント一覧の書き込みに失敗しました: %w", err)
	}

	out := filepath.Join(tmp, "movie.mp4")
	if err := s.run(ctx, ffmpegCommand, "-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out); err != nil {
		return nil, fmt.Errorf("ムービーの連結に失敗しました: %w", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("ムービーの読み込みに失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "スライドショーを作成しました", "segments", len(segments), "bytes", len(data))
	return data, nil
}

// renderSegment は1ページ分のセグメントを作成し、そのパスを返します。画像も動画もないページは空文字です。
func (s *Slideshow) renderSegment(ctx context.Context, dir string, p domain.Page) (string, error) {
	src := p.Image
	loop := []string{"-loop", "1"}
	ext := ".png"
	if !p.Video.IsZero() {
		src = p.Video
		loop = []string{"-stream_loop", "-1"}
		ext = ".mp4"
	}
	if src.IsZero() {
		return "", nil
	}

	data, err := s.blobs.Get(src)
	if err != nil {
		return "", fmt.Errorf("ページ %d の素材の取得に失敗しました: %w", p.PageNumber, err)
	}
	input := filepath.Join(dir, fmt.Sprintf("source_%02d%s", p.PageNumber, ext))
	if err := os.WriteFile(input, data, 0o644); err != nil {
		return "", fmt.Errorf("ページ %d の素材の書き込みに失敗しました: %w", p.PageNumber, err)
	}

	seg := filepath.Join(dir, fmt.Sprintf("segment_%02d.mp4", p.PageNumber))
	args := append([]string{"-y"}, loop...)
	args = append(args,
		"-i", input,
		"-t", fmt.Sprintf("%.3f", SlideDuration(p.NarrationScript).Seconds()),
		"-vf", letterboxFilter(),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-an",
		seg,
	)
	if err := s.run(ctx, ffmpegCommand, args...); err != nil {
		return "", fmt.Errorf("ページ %d のセグメント作成に失敗しました: %w", p.PageNumber, err)
	}
	return seg, nil
}

func letterboxFilter() string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,fps=%d,format=yuv420p",
		movieWidth, movieHeight, movieWidth, movieHeight, movieFPS)
}
