package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultPageArchiveName はページ画像をまとめた zip のファイル名です。
	DefaultPageArchiveName = "comic_book_pages.zip"
	// DefaultStoryboardName はストーリーボード Markdown のファイル名です。
	DefaultStoryboardName = "comic_book.md"
	// DefaultImageDir はページ画像を書き出すディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultSceneDir はシーン動画を書き出すディレクトリ名です。
	DefaultSceneDir = "scenes"
	// DefaultMovieName はタイトルが空の場合のムービーのベース名です。
	DefaultMovieName = "comic_book_movie"
	// DefaultCharacterSheetName はキャラクター設定画のファイル名です。
	DefaultCharacterSheetName = "character_sheet.png"
)

var (
	// PageFileRegex はページ画像 (page_01.png 等) に一致します。
	PageFileRegex = regexp.MustCompile(`^page_\d{2}\.png$`)
	// SceneFileRegex はシーン動画 (comic_movie_scene_1.mp4 等) に一致します。
	SceneFileRegex = regexp.MustCompile(`^comic_movie_scene_\d+\.mp4$`)

	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}

// PageFileName はページ番号（1 始まり）からアーカイブ内のファイル名を返します。
func PageFileName(pageNumber int) string {
	return fmt.Sprintf("page_%02d.png", pageNumber)
}

// SceneFileName はページ番号（1 始まり）からシーン動画のファイル名を返します。
func SceneFileName(pageNumber int) string {
	return fmt.Sprintf("comic_movie_scene_%d.mp4", pageNumber)
}

// MovieFileName はタイトルの空白をアンダースコアに置き換えたムービーのファイル名を返します。
// 例: "Nutty  in Space" -> "Nutty_in_Space.mp4"
func MovieFileName(title string) string {
	base := whitespaceRegex.ReplaceAllString(strings.TrimSpace(title), "_")
	base = strings.Map(func(r rune) rune {
		if r == filepath.Separator || r == '/' {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = DefaultMovieName
	}
	return base + ".mp4"
}
