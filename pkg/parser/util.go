package parser

import (
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
)

const placeholderImage = "placeholder.png"

// resolveBaseURL はストーリーボードの場所から画像参照用のベースを導き出すのだ。
// http(s) なら末尾がスラッシュのディレクトリ URL、それ以外はローカルのディレクトリを返すのだ。
func resolveBaseURL(storyboardPath string) string {
	if storyboardPath == "" {
		return ""
	}

	u, err := url.Parse(storyboardPath)
	if err != nil {
		slog.Warn("ストーリーボードのパスの解析に失敗したのだ",
			"path", storyboardPath,
			"error", err,
		)
		return ""
	}

	switch u.Scheme {
	case "http", "https":
		dir := path.Dir(u.Path)
		if dir == "." || dir == "/" {
			dir = ""
		}
		u.Path = dir + "/"
		u.RawQuery = ""
		return u.String()
	default:
		return filepath.Dir(storyboardPath)
	}
}

// resolveFullPath はベースと相対パスから画像の場所を組み立てるのだ。
// プレースホルダーと空の参照は "" になるのだ。
func resolveFullPath(base, refPath string) string {
	if refPath == "" || refPath == placeholderImage {
		return ""
	}

	u, err := url.Parse(refPath)
	if err == nil && u.Scheme != "" && u.Host != "" {
		return refPath
	}
	if filepath.IsAbs(refPath) || base == "" {
		return refPath
	}

	if b, err := url.Parse(base); err == nil && b.Scheme != "" && b.Host != "" {
		return base + refPath
	}
	return filepath.Join(base, filepath.FromSlash(refPath))
}
