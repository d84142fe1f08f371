// Package nutrition 食譜營養成分計算核心
//
// 一份 Recipe 包含可用的產品清單 (pantry) 與一道 Dish。產品的營養資訊可以直接宣告，
// 也可以引用另一份食譜文件，Resolver 會遞迴解析並換算成每 100 克的數值。
package nutrition

import (
	"fmt"
	"math"
	"strings"
)

// Nutrition 營養素種類（固定且有序）
type Nutrition int

const (
	Energy Nutrition = iota
	Proteins
	Fats
	Carbohydrates
)

// All 依顯示順序列出所有營養素
var All = []Nutrition{Energy, Proteins, Fats, Carbohydrates}

var nutritionNames = [...]string{
	Energy:        "Energy",
	Proteins:      "Proteins",
	Fats:          "Fats",
	Carbohydrates: "Carbohydrates",
}

func (n Nutrition) String() string {
	if n < 0 || int(n) >= len(nutritionNames) {
		return fmt.Sprintf("Nutrition(%d)", int(n))
	}
	return nutritionNames[n]
}

// ParseNutrition 解析營養素名稱（不分大小寫）
func ParseNutrition(name string) (Nutrition, error) {
	for _, n := range All {
		if strings.EqualFold(strings.TrimSpace(name), nutritionNames[n]) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("unknown nutrient %q", name)
}

// MarshalText 實現 encoding.TextMarshaler，讓 Facts 以名稱作為 JSON key
func (n Nutrition) MarshalText() ([]byte, error) {
	if n < 0 || int(n) >= len(nutritionNames) {
		return nil, fmt.Errorf("invalid nutrient %d", int(n))
	}
	return []byte(nutritionNames[n]), nil
}

// UnmarshalText 實現 encoding.TextUnmarshaler
func (n *Nutrition) UnmarshalText(text []byte) error {
	parsed, err := ParseNutrition(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Facts 營養成分表，慣例上為每 100 克的含量。
// 缺少的 key 代表「沒有資料」而非 0。
type Facts map[Nutrition]float64

// Get 取得營養素數值
func (f Facts) Get(n Nutrition) (float64, bool) {
	v, ok := f[n]
	return v, ok
}

// Clone 複製成分表
func (f Facts) Clone() Facts {
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Scale 回傳所有數值乘上 factor 的新成分表，不會新增原本不存在的 key
func (f Facts) Scale(factor float64) Facts {
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v * factor
	}
	return out
}

// Equal 在容許誤差內比較兩份成分表
func (f Facts) Equal(other Facts, tolerance float64) bool {
	if len(f) != len(other) {
		return false
	}
	for k, v := range f {
		ov, ok := other[k]
		if !ok || math.Abs(v-ov) > tolerance {
			return false
		}
	}
	return true
}

// Source 產品營養來源：直接宣告的 Facts 或引用其他食譜文件
type Source struct {
	facts     Facts
	recipeRef string
}

// FactsSource 建立直接宣告的營養來源
func FactsSource(f Facts) Source {
	return Source{facts: f.Clone()}
}

// RecipeSource 建立引用其他食譜文件的營養來源
func RecipeSource(ref string) Source {
	return Source{recipeRef: ref}
}

// IsRecipe 是否為食譜引用
func (s Source) IsRecipe() bool {
	return s.recipeRef != ""
}

// Facts 回傳直接宣告的成分表
func (s Source) Facts() Facts {
	return s.facts.Clone()
}

// RecipeRef 回傳引用的文件路徑
func (s Source) RecipeRef() string {
	return s.recipeRef
}

// Product 可供查找的產品
type Product struct {
	Name   string
	Source Source
}

// Ingredient 菜餚中使用的產品與重量（克）
type Ingredient struct {
	Product string
	Amount  float64
}

// Dish 菜餚：有序的食材與可選的成品重量
type Dish struct {
	Ingredients []Ingredient
	Weight      *float64
}

// Recipe 一份食譜文件
type Recipe struct {
	// Location 文件的標準位置，內嵌食譜為空字串
	Location string
	Products []Product
	Dish     Dish
}

// FindProduct 依名稱查找產品（區分大小寫，重複名稱取第一個）
func (r *Recipe) FindProduct(name string) (*Product, bool) {
	for i := range r.Products {
		if r.Products[i].Name == name {
			return &r.Products[i], true
		}
	}
	return nil, false
}

// ProductNames 依宣告順序列出產品名稱
func (r *Recipe) ProductNames() []string {
	names := make([]string, 0, len(r.Products))
	for _, p := range r.Products {
		names = append(names, p.Name)
	}
	return names
}
