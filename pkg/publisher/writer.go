package publisher

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

const (
	markdownContentType = "text/markdown; charset=utf-8"
	zipContentType      = "application/zip"
	movieContentType    = "video/mp4"
)

// BlobSource は成果物の参照ハンドルからバイト列を取り出します。
type BlobSource interface {
	Get(a domain.Artifact) ([]byte, error)
}

// write は data を remoteio.OutputWriter 経由で dest に書き込みます。
// dest はローカルパスのほか gs:// や s3:// の URI も扱えます。
func (p *ComicPublisher) write(ctx context.Context, dest string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.writer.Write(ctx, dest, bytes.NewReader(data), contentType)
}

// artifactContentType は成果物の MIME タイプを返します。未設定の場合は拡張子から決めます。
func artifactContentType(a domain.Artifact, name string) string {
	if a.MIMEType != "" {
		return a.MIMEType
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".mp4":
		return movieContentType
	default:
		return remoteio.DefaultContentType
	}
}
