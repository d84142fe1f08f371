package nutrition

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxDepth 食譜引用鏈的預設最大深度
const DefaultMaxDepth = 32

// Loader 載入被引用的食譜文件
type Loader interface {
	// Locate 將引用字串轉成標準位置，parent 為引用者的位置（內嵌食譜為空）
	Locate(ref, parent string) (string, error)
	// Load 載入並解析指定位置的文件
	Load(ctx context.Context, location string) (*Recipe, error)
}

// Result 解析結果
type Result struct {
	Facts     Facts
	Basis     float64
	TotalMass float64
}

// Resolver 遞迴解析食譜的營養成分
type Resolver struct {
	loader   Loader
	tracer   Tracer
	maxDepth int
}

// Option Resolver 選項
type Option func(*Resolver)

// WithTracer 設定追蹤事件接收者
func WithTracer(t Tracer) Option {
	return func(r *Resolver) {
		r.tracer = t
	}
}

// WithMaxDepth 設定引用鏈最大深度，<= 0 使用預設值
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// NewResolver 創建新的 Resolver；loader 可為 nil，此時遇到食譜引用會回傳 LoadError
func NewResolver(loader Loader, opts ...Option) *Resolver {
	r := &Resolver{
		loader:   loader,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve 計算食譜每 100 克的營養成分
func (r *Resolver) Resolve(ctx context.Context, recipe *Recipe) (Facts, error) {
	res, err := r.Evaluate(ctx, recipe)
	if err != nil {
		return nil, err
	}
	return res.Facts, nil
}

// Evaluate 與 Resolve 相同，但額外回傳換算基準與食材總重
func (r *Resolver) Evaluate(ctx context.Context, recipe *Recipe) (*Result, error) {
	var chain []string
	if recipe.Location != "" {
		chain = []string{recipe.Location}
	}
	return r.evaluate(ctx, recipe, chain, 0)
}

// ResolveLocation 載入 ref 指向的文件後解析
func (r *Resolver) ResolveLocation(ctx context.Context, ref string) (*Result, error) {
	location, err := r.locate(ref, "")
	if err != nil {
		return nil, err
	}
	recipe, err := r.load(ctx, location)
	if err != nil {
		return nil, err
	}
	return r.evaluate(ctx, recipe, []string{location}, 0)
}

func (r *Resolver) evaluate(ctx context.Context, recipe *Recipe, chain []string, depth int) (*Result, error) {
	acc, total, err := r.accumulate(ctx, recipe, chain, depth)
	if err != nil {
		return nil, err
	}

	r.emit(Event{
		Kind:      EventTotals,
		Recipe:    recipe.Location,
		Depth:     depth,
		Totals:    acc.Clone(),
		TotalMass: total,
	})

	facts, basis, err := Normalize(acc, total, recipe.Dish.Weight)
	if err != nil {
		return nil, err
	}
	return &Result{Facts: facts, Basis: basis, TotalMass: total}, nil
}

// accumulate 依序累加每個食材的貢獻
func (r *Resolver) accumulate(ctx context.Context, recipe *Recipe, chain []string, depth int) (Facts, float64, error) {
	acc := make(Facts)
	total := 0.0

	for _, ingredient := range recipe.Dish.Ingredients {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		product, ok := recipe.FindProduct(ingredient.Product)
		if !ok {
			return nil, 0, &ProductNotFoundError{
				Product:   ingredient.Product,
				Available: recipe.ProductNames(),
			}
		}

		facts, err := r.productFacts(ctx, recipe, product, chain, depth)
		if err != nil {
			return nil, 0, err
		}

		total += ingredient.Amount
		for _, n := range All {
			per100g, ok := facts[n]
			if !ok {
				continue
			}
			contribution := per100g / 100.0 * ingredient.Amount
			acc[n] += contribution
			r.emit(Event{
				Kind:         EventContribution,
				Recipe:       recipe.Location,
				Depth:        depth,
				Product:      product.Name,
				Nutrient:     n,
				Per100g:      per100g,
				Amount:       ingredient.Amount,
				Contribution: contribution,
			})
		}
	}

	return acc, total, nil
}

// productFacts 取得產品每 100 克的營養成分，必要時遞迴解析引用的食譜
func (r *Resolver) productFacts(ctx context.Context, recipe *Recipe, product *Product, chain []string, depth int) (Facts, error) {
	if !product.Source.IsRecipe() {
		return product.Source.Facts(), nil
	}

	location, err := r.locate(product.Source.RecipeRef(), recipe.Location)
	if err != nil {
		return nil, err
	}

	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	next = append(next, location)

	for _, seen := range chain {
		if seen == location {
			return nil, &CyclicReferenceError{Chain: next}
		}
	}
	if depth+1 > r.maxDepth {
		return nil, &CyclicReferenceError{Chain: next, MaxDepth: r.maxDepth}
	}

	nested, err := r.load(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", product.Name, err)
	}

	res, err := r.evaluate(ctx, nested, next, depth+1)
	if err != nil {
		return nil, fmt.Errorf("product %q (%s): %w", product.Name, location, err)
	}
	return res.Facts, nil
}

func (r *Resolver) locate(ref, parent string) (string, error) {
	if r.loader == nil {
		return "", &LoadError{Location: ref, Err: errors.New("no document loader configured")}
	}
	location, err := r.loader.Locate(ref, parent)
	if err != nil {
		return "", asLoadError(ref, err)
	}
	return location, nil
}

func (r *Resolver) load(ctx context.Context, location string) (*Recipe, error) {
	recipe, err := r.loader.Load(ctx, location)
	if err != nil {
		return nil, asLoadError(location, err)
	}
	if recipe.Location == "" {
		recipe.Location = location
	}
	return recipe, nil
}

func (r *Resolver) emit(e Event) {
	if r.tracer != nil {
		r.tracer.Trace(e)
	}
}

// asLoadError 確保載入失敗都以 LoadError 回報，context 錯誤除外
func asLoadError(location string, err error) error {
	var le *LoadError
	if errors.As(err, &le) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &LoadError{Location: location, Err: err}
}
