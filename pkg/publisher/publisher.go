package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/shouni/go-comic-movie-kit/pkg/asset"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/sync/errgroup"
)

// maxParallelWrites はファイル書き込みの同時実行数の上限です。
const maxParallelWrites = 4

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	// Movie が true の場合はスライドショーのムービーも作成します。
	Movie bool
}

// PublishResult はパブリッシュ処理で生成されたファイルのパスを保持します。
type PublishResult struct {
	StoryboardPath     string
	ArchivePath        string
	CharacterSheetPath string
	ImagePaths         []string
	ScenePaths         []string
	MoviePath          string
}

// ComicPublisher は完成したプロジェクトを remoteio.OutputWriter に書き出します。
type ComicPublisher struct {
	writer    remoteio.OutputWriter
	blobs     BlobSource
	slideshow *Slideshow
}

// NewComicPublisher は ComicPublisher を生成します。slideshow が nil の場合はムービーを作成できません。
func NewComicPublisher(writer remoteio.OutputWriter, blobs BlobSource, slideshow *Slideshow) (*ComicPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob source は必須です")
	}
	return &ComicPublisher{writer: writer, blobs: blobs, slideshow: slideshow}, nil
}

// Publish は設定画、ページ画像、zip、シーン動画、ストーリーボード、（指定があれば）ムービーを書き出します。
func (p *ComicPublisher) Publish(ctx context.Context, project domain.ProjectState, opts Options) (PublishResult, error) {
	result := PublishResult{}

	// 1. キャラクター設定画
	if project.Character != nil {
		sheetPath, err := p.WriteCharacterSheet(ctx, opts.OutputDir, *project.Character)
		if err != nil {
			return result, err
		}
		result.CharacterSheetPath = sheetPath
	}

	// 2. ページ画像
	imagePaths, err := p.WritePageImages(ctx, opts.OutputDir, project.Pages)
	if err != nil {
		return result, err
	}
	result.ImagePaths = imagePaths

	// 3. ページ画像の zip
	archivePath, err := p.WritePageArchive(ctx, opts.OutputDir, project.Pages)
	if err != nil {
		return result, err
	}
	result.ArchivePath = archivePath

	// 4. シーン動画
	scenePaths, err := p.WriteScenes(ctx, opts.OutputDir, project.Pages)
	if err != nil {
		return result, err
	}
	result.ScenePaths = scenePaths

	// 5. ストーリーボード（画像は出力先からの相対パスで参照）
	relative := make([]string, len(project.Pages))
	for i, pg := range project.Pages {
		if !pg.Image.IsZero() {
			relative[i] = path.Join(asset.DefaultImageDir, asset.PageFileName(pg.PageNumber))
		}
	}
	storyboardPath, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultStoryboardName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := p.write(ctx, storyboardPath, []byte(BuildStoryboard(project, relative)), markdownContentType); err != nil {
		return result, fmt.Errorf("ストーリーボードの書き込みに失敗しました: %w", err)
	}
	result.StoryboardPath = storyboardPath

	// 6. ムービー
	if opts.Movie {
		title := ""
		if project.Story != nil {
			title = project.Story.Title
		}
		moviePath, err := p.WriteMovie(ctx, opts.OutputDir, title, project.Pages)
		if err != nil {
			return result, err
		}
		result.MoviePath = moviePath
	}

	slog.InfoContext(ctx, "成果物を書き出しました",
		"output_dir", opts.OutputDir,
		"images", len(result.ImagePaths),
		"scenes", len(result.ScenePaths),
		"movie", result.MoviePath,
	)
	return result, nil
}

// WriteCharacterSheet はキャラクター設定画を書き出します。
func (p *ComicPublisher) WriteCharacterSheet(ctx context.Context, outputDir string, character domain.Character) (string, error) {
	if character.Sheet.IsZero() {
		return "", fmt.Errorf("キャラクター設定画がありません")
	}
	data, err := p.blobs.Get(character.Sheet)
	if err != nil {
		return "", fmt.Errorf("キャラクター設定画の取得に失敗しました: %w", err)
	}
	dest, err := asset.ResolveOutputPath(outputDir, asset.DefaultCharacterSheetName)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := p.write(ctx, dest, data, artifactContentType(character.Sheet, dest)); err != nil {
		return "", fmt.Errorf("キャラクター設定画の書き込みに失敗しました: %w", err)
	}
	return dest, nil
}

// WritePageImages はページ画像を images/page_NN.png として並列に書き出します。
// 戻り値はページ順で、画像のないページは含みません。
func (p *ComicPublisher) WritePageImages(ctx context.Context, outputDir string, pages domain.Pages) ([]string, error) {
	imgDir, err := asset.ResolveOutputPath(outputDir, asset.DefaultImageDir)
	if err != nil {
		return nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	return p.writeEach(ctx, pages, func(pg domain.Page) (domain.Artifact, string) {
		return pg.Image, asset.PageFileName(pg.PageNumber)
	}, imgDir)
}

// WriteScenes はアニメーション済みのページの動画を scenes/comic_movie_scene_{n}.mp4 として並列に書き出します。
func (p *ComicPublisher) WriteScenes(ctx context.Context, outputDir string, pages domain.Pages) ([]string, error) {
	sceneDir, err := asset.ResolveOutputPath(outputDir, asset.DefaultSceneDir)
	if err != nil {
		return nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	return p.writeEach(ctx, pages, func(pg domain.Page) (domain.Artifact, string) {
		return pg.Video, asset.SceneFileName(pg.PageNumber)
	}, sceneDir)
}

// writeEach は pick が返す成果物を dir 以下に errgroup で並列に書き出します。
func (p *ComicPublisher) writeEach(ctx context.Context, pages domain.Pages, pick func(domain.Page) (domain.Artifact, string), dir string) ([]string, error) {
	paths := make([]string, len(pages))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelWrites)

	for i, pg := range pages {
		a, name := pick(pg)
		if a.IsZero() {
			continue
		}
		eg.Go(func() error {
			data, err := p.blobs.Get(a)
			if err != nil {
				return fmt.Errorf("ページ %d の成果物の取得に失敗しました: %w", pg.PageNumber, err)
			}
			dest, err := asset.ResolveOutputPath(dir, name)
			if err != nil {
				return fmt.Errorf("出力パスの解決に失敗しました: %w", err)
			}
			if err := p.write(egCtx, dest, data, artifactContentType(a, name)); err != nil {
				return fmt.Errorf("書き込みに失敗しました %s: %w", dest, err)
			}
			paths[i] = dest
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, pth := range paths {
		if pth != "" {
			out = append(out, pth)
		}
	}
	return out, nil
}

// WritePageArchive は comic_book_pages.zip を書き出します。
func (p *ComicPublisher) WritePageArchive(ctx context.Context, outputDir string, pages domain.Pages) (string, error) {
	data, err := BuildPageArchive(pages, p.blobs)
	if err != nil {
		return "", err
	}
	dest, err := asset.ResolveOutputPath(outputDir, asset.DefaultPageArchiveName)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := p.write(ctx, dest, data, zipContentType); err != nil {
		return "", fmt.Errorf("アーカイブの書き込みに失敗しました: %w", err)
	}
	return dest, nil
}

// WriteMovie はスライドショーを作成し、タイトルから決めたファイル名で書き出します。
func (p *ComicPublisher) WriteMovie(ctx context.Context, outputDir, title string, pages domain.Pages) (string, error) {
	if p.slideshow == nil {
		return "", fmt.Errorf("スライドショーが設定されていません")
	}
	data, err := p.slideshow.Render(ctx, pages)
	if err != nil {
		return "", fmt.Errorf("ムービーの作成に失敗しました: %w", err)
	}
	dest, err := asset.ResolveOutputPath(outputDir, asset.MovieFileName(title))
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := p.write(ctx, dest, data, movieContentType); err != nil {
		return "", fmt.Errorf("ムービーの書き込みに失敗しました: %w", err)
	}
	return dest, nil
}
