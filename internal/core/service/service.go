// Package service 組合文件載入、快取與解析器，提供營養成分計算服務
package service

import (
	"context"
	"fmt"
	"time"

	"nutrition-calculator/internal/core/cache"
	"nutrition-calculator/internal/core/document"
	"nutrition-calculator/internal/core/nutrition"
	"nutrition-calculator/internal/infrastructure/config"
	"nutrition-calculator/internal/pkg/common"

	"go.uber.org/zap"
)

// Resolution 一次解析的結果
type Resolution struct {
	ID        string
	Location  string
	Facts     nutrition.Facts
	Basis     float64
	TotalMass float64
	Duration  time.Duration
}

// Service 營養成分計算服務
type Service struct {
	config   *config.Config
	store    cache.Store
	loader   *document.Loader
	resolver *nutrition.Resolver
}

// Option Service 選項
type Option func(*options)

type options struct {
	tracers []nutrition.Tracer
	store   cache.Store
}

// WithTracer 額外接收解析追蹤事件
func WithTracer(t nutrition.Tracer) Option {
	return func(o *options) {
		o.tracers = append(o.tracers, t)
	}
}

// WithStore 使用指定的快取，取代依設定建立的快取
func WithStore(store cache.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// NewService 創建營養成分計算服務
func NewService(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = cache.New(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	loader, err := document.NewLoader(document.OptionsFromConfig(cfg.Loader, store))
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("failed to initialize loader: %w", err)
	}

	tracers := o.tracers
	if cfg.Resolver.Trace {
		tracers = append(tracers, LogTracer())
	}

	resolverOpts := []nutrition.Option{nutrition.WithMaxDepth(cfg.Resolver.MaxDepth)}
	if len(tracers) > 0 {
		resolverOpts = append(resolverOpts, nutrition.WithTracer(nutrition.MultiTracer(tracers...)))
	}

	common.LogInfo("nutrition service initialized",
		zap.Bool("cache_enabled", store != nil),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Int("max_depth", cfg.Resolver.MaxDepth),
		zap.Bool("trace", cfg.Resolver.Trace),
	)

	return &Service{
		config:   cfg,
		store:    store,
		loader:   loader,
		resolver: nutrition.NewResolver(loader, resolverOpts...),
	}, nil
}

// ResolveLocation 解析指定位置（檔案路徑或 URL）的食譜文件
func (s *Service) ResolveLocation(ctx context.Context, ref string) (*Resolution, error) {
	id := common.GenerateUUID()
	start := time.Now()

	res, err := s.resolver.ResolveLocation(ctx, ref)
	duration := time.Since(start)
	common.LogResolution(id, ref, duration, err)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		ID:        id,
		Location:  ref,
		Facts:     res.Facts,
		Basis:     res.Basis,
		TotalMass: res.TotalMass,
		Duration:  duration,
	}, nil
}

// ResolveDocument 解析直接提供的文件內容；文件中的引用依 loader 的基準目錄定位
func (s *Service) ResolveDocument(ctx context.Context, data []byte, format document.Format) (*Resolution, error) {
	id := common.GenerateUUID()

	recipe, err := document.DecodeFormat(data, format)
	if err != nil {
		common.LogDebug("invalid inline recipe",
			zap.String("resolution_id", id),
			zap.Error(err),
		)
		return nil, common.NewValidationError(fmt.Sprintf("invalid recipe document: %v", err))
	}

	start := time.Now()
	res, err := s.resolver.Evaluate(ctx, recipe)
	duration := time.Since(start)
	common.LogResolution(id, "inline", duration, err)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		ID:        id,
		Facts:     res.Facts,
		Basis:     res.Basis,
		TotalMass: res.TotalMass,
		Duration:  duration,
	}, nil
}

// CacheEnabled 是否啟用文件快取
func (s *Service) CacheEnabled() bool {
	return s.store != nil
}

// Close 釋放載入器與快取
func (s *Service) Close() error {
	s.loader.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// LogTracer 以 debug 日誌輸出追蹤事件
func LogTracer() nutrition.Tracer {
	return nutrition.TracerFunc(func(e nutrition.Event) {
		switch e.Kind {
		case nutrition.EventContribution:
			common.LogDebug("ingredient contribution",
				zap.String("recipe", e.Recipe),
				zap.Int("depth", e.Depth),
				zap.String("product", e.Product),
				zap.Stringer("nutrient", e.Nutrient),
				zap.Float64("per_100g", e.Per100g),
				zap.Float64("amount", e.Amount),
				zap.Float64("contribution", e.Contribution),
			)
		case nutrition.EventTotals:
			common.LogDebug("recipe totals",
				zap.String("recipe", e.Recipe),
				zap.Int("depth", e.Depth),
				zap.Float64("total_mass", e.TotalMass),
				zap.Any("totals", e.Totals),
			)
		}
	})
}
