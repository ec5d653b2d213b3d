package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/apperr"

	"github.com/shouni/go-http-kit/httpkit"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFetchTimeout は生成物のダウンロード1回あたりのタイムアウトです。
	DefaultFetchTimeout = 5 * time.Minute

	defaultVideoMIME = "video/mp4"
	opFetch          = "fetchArtifact"
)

// BytesFetcher は URL の内容を取得します。httpkit.Client が満たします。
type BytesFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

type fetchResult struct {
	data     []byte
	mimeType string
}

// HTTPFetcher は生成物のダウンロード URI に API キーを付与して取得します。
// 同じ URI への同時取得は1回にまとめます。
type HTTPFetcher struct {
	client BytesFetcher
	apiKey string
	group  singleflight.Group
}

// NewDownloadClient はリトライしない httpkit.Client を生成します。
// 取得失敗は呼び出し元の工程で扱うため、クライアント側では再試行しません。
func NewDownloadClient(timeout time.Duration, opts ...httpkit.ClientOption) *httpkit.Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return httpkit.New(timeout, append([]httpkit.ClientOption{httpkit.WithMaxRetries(0)}, opts...)...)
}

// NewHTTPFetcher は HTTPFetcher を生成します。client が nil の場合は NewDownloadClient の既定値を使います。
func NewHTTPFetcher(client BytesFetcher, apiKey string) *HTTPFetcher {
	if client == nil {
		client = NewDownloadClient(DefaultFetchTimeout)
	}
	return &HTTPFetcher{client: client, apiKey: apiKey}
}

// Fetch は uri の内容を取得し、バイト列と MIME タイプを返します。
// 共有されたダウンロードは最初の呼び出し元のキャンセルに巻き込まれず、各呼び出し元は自分の ctx でのみ待機を打ち切ります。
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	shared := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		shared, cancel = context.WithDeadline(shared, deadline)
		defer cancel()
	}

	ch := f.group.DoChan(uri, func() (interface{}, error) {
		return f.download(shared, uri)
	})

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, "", r.Err
		}
		res := r.Val.(fetchResult)
		// 共有された結果を呼び出し元ごとに複製する
		return append([]byte(nil), res.data...), res.mimeType, nil
	}
}

func (f *HTTPFetcher) download(ctx context.Context, uri string) (fetchResult, error) {
	target, err := withKey(uri, f.apiKey)
	if err != nil {
		return fetchResult{}, apperr.Fetch(opFetch, "The download link for the generated video is invalid.", err)
	}

	data, err := f.client.FetchBytes(ctx, target)
	if err != nil {
		if httpkit.IsNonRetryableError(err) {
			return fetchResult{}, apperr.Fetch(opFetch, "The generated video could not be downloaded.", err)
		}
		return fetchResult{}, apperr.Fetch(opFetch, "Failed to download the generated video.", err)
	}
	return fetchResult{data: data, mimeType: videoMIMEType(data)}, nil
}

// videoMIMEType は内容から動画の MIME タイプを判定します。判定できない場合は mp4 とみなします。
func videoMIMEType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if strings.HasPrefix(mimeType, "video/") {
		return mimeType
	}
	return defaultVideoMIME
}

// withKey は uri のクエリに key パラメータを付与します。
func withKey(uri, apiKey string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("不正なダウンロード URI です: %w", err)
	}
	if apiKey == "" {
		return u.String(), nil
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
