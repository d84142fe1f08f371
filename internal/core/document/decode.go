// Package document 載入並解析食譜文件（YAML / JSON）
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"path"
	"strings"

	"nutrition-calculator/internal/core/nutrition"
	"nutrition-calculator/internal/pkg/common"

	"gopkg.in/yaml.v3"
)

// Format 文件格式
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

// FormatFor 依位置的副檔名判斷格式，.json 以外一律視為 YAML
func FormatFor(location string) Format {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	if strings.EqualFold(path.Ext(p), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// FormatForContentType 依 Content-Type 判斷格式
func FormatForContentType(contentType string) Format {
	if strings.Contains(strings.ToLower(contentType), "json") {
		return FormatJSON
	}
	return FormatYAML
}

type recipeDoc struct {
	Products []productDoc `yaml:"products" json:"products"`
	Dish     *dishDoc     `yaml:"dish" json:"dish"`
}

type productDoc struct {
	Name   string             `yaml:"name" json:"name"`
	Facts  map[string]float64 `yaml:"facts" json:"facts"`
	Recipe *string            `yaml:"recipe" json:"recipe"`
}

type dishDoc struct {
	Ingredients []ingredientDoc `yaml:"ingredients" json:"ingredients"`
	Weight      *float64        `yaml:"weight" json:"weight"`
}

type ingredientDoc struct {
	Product string   `yaml:"product" json:"product"`
	Amount  *float64 `yaml:"amount" json:"amount"`
}

// Decode 依位置判斷格式並解析文件
func Decode(location string, data []byte) (*nutrition.Recipe, error) {
	recipe, err := DecodeFormat(data, FormatFor(location))
	if err != nil {
		return nil, err
	}
	recipe.Location = location
	return recipe, nil
}

// DecodeFormat 以指定格式解析文件
func DecodeFormat(data []byte, format Format) (*nutrition.Recipe, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}

	var doc recipeDoc
	switch format {
	case FormatJSON:
		if err := common.ParseJSONBytesStrict(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON document: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("empty document")
			}
			return nil, fmt.Errorf("invalid YAML document: %w", err)
		}
	}

	return doc.toRecipe()
}

func (d *recipeDoc) toRecipe() (*nutrition.Recipe, error) {
	if d.Dish == nil {
		return nil, errors.New("missing dish")
	}

	recipe := &nutrition.Recipe{
		Products: make([]nutrition.Product, 0, len(d.Products)),
	}

	for i, p := range d.Products {
		product, err := p.toProduct()
		if err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		recipe.Products = append(recipe.Products, product)
	}

	recipe.Dish.Ingredients = make([]nutrition.Ingredient, 0, len(d.Dish.Ingredients))
	for i, ing := range d.Dish.Ingredients {
		if ing.Product == "" {
			return nil, fmt.Errorf("dish.ingredients[%d]: product is required", i)
		}
		if ing.Amount == nil {
			return nil, fmt.Errorf("dish.ingredients[%d]: amount is required", i)
		}
		if !finite(*ing.Amount) || *ing.Amount < 0 {
			return nil, fmt.Errorf("dish.ingredients[%d]: invalid amount %v", i, *ing.Amount)
		}
		recipe.Dish.Ingredients = append(recipe.Dish.Ingredients, nutrition.Ingredient{
			Product: ing.Product,
			Amount:  *ing.Amount,
		})
	}

	if d.Dish.Weight != nil {
		w := *d.Dish.Weight
		recipe.Dish.Weight = &w
	}

	return recipe, nil
}

func (p productDoc) toProduct() (nutrition.Product, error) {
	if p.Name == "" {
		return nutrition.Product{}, errors.New("name is required")
	}

	switch {
	case p.Facts != nil && p.Recipe != nil:
		return nutrition.Product{}, fmt.Errorf("product %q: facts and recipe are mutually exclusive", p.Name)
	case p.Recipe != nil:
		ref := strings.TrimSpace(*p.Recipe)
		if ref == "" {
			return nutrition.Product{}, fmt.Errorf("product %q: empty recipe reference", p.Name)
		}
		return nutrition.Product{Name: p.Name, Source: nutrition.RecipeSource(ref)}, nil
	case p.Facts != nil:
		facts := make(nutrition.Facts, len(p.Facts))
		for name, amount := range p.Facts {
			n, err := nutrition.ParseNutrition(name)
			if err != nil {
				return nutrition.Product{}, fmt.Errorf("product %q: %w", p.Name, err)
			}
			if _, dup := facts[n]; dup {
				return nutrition.Product{}, fmt.Errorf("product %q: duplicate nutrient %s", p.Name, n)
			}
			if !finite(amount) {
				return nutrition.Product{}, fmt.Errorf("product %q: invalid amount for %s", p.Name, n)
			}
			facts[n] = amount
		}
		return nutrition.Product{Name: p.Name, Source: nutrition.FactsSource(facts)}, nil
	default:
		return nutrition.Product{}, fmt.Errorf("product %q: one of facts or recipe is required", p.Name)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
