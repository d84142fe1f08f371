package document

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"nutrition-calculator/internal/core/cache"
	"nutrition-calculator/internal/core/nutrition"
	"nutrition-calculator/internal/infrastructure/config"
	"nutrition-calculator/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrRemoteDisabled 遠端文件未開放
var ErrRemoteDisabled = errors.New("remote documents are disabled")

// ErrOutsideBaseDir 文件位於允許的目錄之外
var ErrOutsideBaseDir = errors.New("document is outside the recipe directory")

// Options Loader 設定
type Options struct {
	BaseDir          string
	RelativeToParent bool
	AllowRemote      bool
	HTTPTimeout      time.Duration
	MaxDocumentBytes int64
	Cache            cache.Store
}

// OptionsFromConfig 從設定建立 Options
func OptionsFromConfig(cfg config.LoaderConfig, store cache.Store) Options {
	return Options{
		BaseDir:          cfg.BaseDir,
		RelativeToParent: cfg.RelativeToParent,
		AllowRemote:      cfg.AllowRemote,
		HTTPTimeout:      cfg.HTTPTimeout,
		MaxDocumentBytes: cfg.MaxDocumentBytes,
		Cache:            store,
	}
}

// Loader 實現 nutrition.Loader：定位、取得並解析食譜文件
type Loader struct {
	opts    Options
	baseDir string
	files   Fetcher
	remote  Fetcher
	http    *HTTPFetcher
}

// NewLoader 創建新的 Loader
func NewLoader(opts Options) (*Loader, error) {
	l := &Loader{opts: opts}

	if opts.BaseDir != "" {
		abs, err := filepath.Abs(opts.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("invalid base dir: %w", err)
		}
		l.baseDir = abs
	}

	l.files = NewCachingFetcher(&FileFetcher{MaxBytes: opts.MaxDocumentBytes}, opts.Cache)

	if opts.AllowRemote {
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		l.http = NewHTTPFetcher(timeout, opts.MaxDocumentBytes)
		l.remote = NewCachingFetcher(l.http, opts.Cache)
	}

	common.LogDebug("document loader initialized",
		zap.String("base_dir", l.baseDir),
		zap.Bool("relative_to_parent", opts.RelativeToParent),
		zap.Bool("allow_remote", opts.AllowRemote),
		zap.Bool("cache", opts.Cache != nil),
	)

	return l, nil
}

// Locate 將引用轉成標準位置（絕對路徑或完整 URL）
func (l *Loader) Locate(ref, parent string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", &nutrition.LoadError{Location: ref, Err: errors.New("empty reference")}
	}

	if isURL(ref) {
		return l.locateURL(ref)
	}

	if l.opts.RelativeToParent && isURL(parent) && !filepath.IsAbs(ref) {
		base, err := url.Parse(parent)
		if err != nil {
			return "", &nutrition.LoadError{Location: ref, Err: err}
		}
		rel, err := url.Parse(filepath.ToSlash(ref))
		if err != nil {
			return "", &nutrition.LoadError{Location: ref, Err: err}
		}
		return l.locateURL(base.ResolveReference(rel).String())
	}

	p := ref
	switch {
	case filepath.IsAbs(p):
	case l.opts.RelativeToParent && parent != "" && !isURL(parent):
		p = filepath.Join(filepath.Dir(parent), p)
	case l.baseDir != "":
		p = filepath.Join(l.baseDir, p)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", &nutrition.LoadError{Location: ref, Err: err}
	}

	if l.baseDir != "" && !within(l.baseDir, abs) {
		return "", &nutrition.LoadError{Location: abs, Err: ErrOutsideBaseDir}
	}
	return abs, nil
}

func (l *Loader) locateURL(raw string) (string, error) {
	if !l.opts.AllowRemote {
		return "", &nutrition.LoadError{Location: raw, Err: ErrRemoteDisabled}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &nutrition.LoadError{Location: raw, Err: err}
	}
	u.Fragment = ""
	return u.String(), nil
}

// Load 取得並解析文件
func (l *Loader) Load(ctx context.Context, location string) (*nutrition.Recipe, error) {
	fetcher := l.files
	if isURL(location) {
		if l.remote == nil {
			return nil, &nutrition.LoadError{Location: location, Err: ErrRemoteDisabled}
		}
		fetcher = l.remote
	}

	data, err := fetcher.Fetch(ctx, location)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &nutrition.LoadError{Location: location, Err: err}
	}

	recipe, err := Decode(location, data)
	if err != nil {
		return nil, &nutrition.LoadError{Location: location, Err: err}
	}

	common.LogDebug("recipe document loaded",
		zap.String("location", location),
		zap.Int("products", len(recipe.Products)),
		zap.Int("ingredients", len(recipe.Dish.Ingredients)),
	)
	return recipe, nil
}

// Close 釋放資源
func (l *Loader) Close() {
	if l.http != nil {
		l.http.Close()
	}
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
