package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"nutrition-calculator/internal/core/cache"
	"nutrition-calculator/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultMaxDocumentBytes 單一文件大小上限
const DefaultMaxDocumentBytes = 1 << 20

// Fetcher 依位置取得文件內容
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileFetcher 從本機檔案系統讀取
type FileFetcher struct {
	MaxBytes int64
}

// Fetch 讀取檔案
func (f *FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(location)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readLimited(file, maxBytes(f.MaxBytes))
}

// HTTPFetcher 透過 HTTP(S) 取得遠端文件
type HTTPFetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewHTTPFetcher 創建 HTTP 文件下載器
func NewHTTPFetcher(timeout time.Duration, max int64) *HTTPFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/yaml, application/x-yaml, application/json;q=0.9, text/plain;q=0.5").
		SetHeader("User-Agent", "nutricalc/1.0")

	return &HTTPFetcher{
		client:   client,
		maxBytes: maxBytes(max),
	}
}

// Fetch 下載文件，讀取時即套用大小上限
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	data, err := readLimited(body, f.maxBytes)
	if err != nil {
		return nil, err
	}

	common.LogDebug("remote document fetched",
		zap.String("location", location),
		zap.Int("size", len(data)),
		zap.Duration("latency", resp.Time()),
	)
	return data, nil
}

// Close 釋放閒置連線
func (f *HTTPFetcher) Close() {
	f.client.GetClient().CloseIdleConnections()
}

// CachingFetcher 在 Fetcher 前加上快取
type CachingFetcher struct {
	inner Fetcher
	store cache.Store
}

// NewCachingFetcher 創建帶快取的 Fetcher；store 為 nil 時直接回傳 inner
func NewCachingFetcher(inner Fetcher, store cache.Store) Fetcher {
	if store == nil {
		return inner
	}
	return &CachingFetcher{inner: inner, store: store}
}

// Fetch 先查快取，未命中時取得並寫入快取
func (f *CachingFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	data, err := f.store.Get(ctx, location)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, common.ErrCacheMiss) {
		common.LogWarn("document cache lookup failed",
			zap.String("location", location),
			zap.Error(err),
		)
	}

	data, err = f.inner.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	if err := f.store.Set(ctx, location, data); err != nil {
		common.LogWarn("failed to cache document",
			zap.String("location", location),
			zap.Error(err),
		)
	}
	return data, nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("document exceeds %d bytes", max)
	}
	return data, nil
}

func maxBytes(n int64) int64 {
	if n <= 0 {
		return DefaultMaxDocumentBytes
	}
	return n
}
