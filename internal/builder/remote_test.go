package builder

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRemoteIO(t *testing.T) {
	ctx := context.Background()

	t.Run("ローカルパスだけならクラウドのクライアントなしで読み書きできること", func(t *testing.T) {
		rio, err := OpenRemoteIO(ctx, t.TempDir(), "", "idea.png")
		require.NoError(t, err)
		defer rio.Close()

		path := filepath.Join(t.TempDir(), "nested", "comic_book.md")
		require.NoError(t, rio.Writer.Write(ctx, path, strings.NewReader("# Title"), "text/markdown"))

		got, err := rio.ReadAll(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "# Title", string(got))
		assert.NoError(t, rio.Close())
	})

	t.Run("gs:// と s3:// の混在はエラーになること", func(t *testing.T) {
		_, err := OpenRemoteIO(ctx, "gs://comics/out", "s3://comics/idea.png")
		assert.Error(t, err)
	})

	t.Run("存在しないファイルの読み込みはエラーになること", func(t *testing.T) {
		rio, err := OpenRemoteIO(ctx)
		require.NoError(t, err)
		_, err = rio.ReadAll(ctx, filepath.Join(t.TempDir(), "missing.wav"))
		assert.Error(t, err)
	})
}
