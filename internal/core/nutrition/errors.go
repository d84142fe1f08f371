package nutrition

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors，可搭配 errors.Is 使用
var (
	ErrLoad               = errors.New("load error")
	ErrProductNotFound    = errors.New("product not found")
	ErrCyclicReference    = errors.New("cyclic recipe reference")
	ErrInvalidBasisWeight = errors.New("invalid basis weight")
)

// LoadError 文件不存在、無法讀取或格式錯誤
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load recipe %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// ProductNotFoundError 食材引用了不存在的產品
type ProductNotFoundError struct {
	Product   string
	Available []string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("cannot find ingredient in recipe: %s possible products: %s",
		e.Product, strings.Join(e.Available, ", "))
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// CyclicReferenceError 食譜引用鏈回到了正在解析中的文件，或超過最大深度
type CyclicReferenceError struct {
	Chain    []string
	MaxDepth int
}

func (e *CyclicReferenceError) Error() string {
	if e.MaxDepth > 0 {
		return fmt.Sprintf("recipe reference chain exceeds max depth %d: %s",
			e.MaxDepth, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("cyclic recipe reference: %s", strings.Join(e.Chain, " -> "))
}

func (e *CyclicReferenceError) Is(target error) bool { return target == ErrCyclicReference }

// InvalidBasisWeightError 換算基準重量為 0、負數或非有限數
type InvalidBasisWeightError struct {
	Weight   float64
	Explicit bool
}

func (e *InvalidBasisWeightError) Error() string {
	if e.Explicit {
		return fmt.Sprintf("invalid dish weight %g: must be a positive number", e.Weight)
	}
	return fmt.Sprintf("invalid basis weight %g: sum of ingredient amounts must be positive", e.Weight)
}

func (e *InvalidBasisWeightError) Is(target error) bool { return target == ErrInvalidBasisWeight }
