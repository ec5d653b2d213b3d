package publisher

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/asset"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
)

// archiveModTime はアーカイブ内の全エントリに付ける固定の更新日時です。
// 同じページからは常に同じバイト列のアーカイブが得られます。
var archiveModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// BuildPageArchive はページ画像を page_01.png … の名前でまとめた zip を返します。
// エントリはページ番号の昇順で、画像のないページは含めません。
func BuildPageArchive(pages domain.Pages, blobs BlobSource) ([]byte, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob source は必須です")
	}

	ordered := pages.Clone()
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].PageNumber < ordered[j].PageNumber })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	written := 0
	for _, p := range ordered {
		if p.Image.IsZero() {
			continue
		}
		data, err := blobs.Get(p.Image)
		if err != nil {
			return nil, fmt.Errorf("ページ %d の画像の取得に失敗しました: %w", p.PageNumber, err)
		}

		hdr := &zip.FileHeader{
			Name:     asset.PageFileName(p.PageNumber),
			Method:   zip.Deflate,
			Modified: archiveModTime,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("アーカイブのエントリ作成に失敗しました: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("アーカイブへの書き込みに失敗しました: %w", err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("アーカイブの確定に失敗しました: %w", err)
	}
	if written == 0 {
		return nil, fmt.Errorf("アーカイブに含めるページ画像がありません")
	}
	return buf.Bytes(), nil
}
