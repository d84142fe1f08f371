package nutrition

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

const tolerance = 1e-9

// mapLoader 以記憶體中的文件模擬 Loader
type mapLoader struct {
	docs  map[string]*Recipe
	loads int
}

func (l *mapLoader) Locate(ref, parent string) (string, error) {
	if ref == "" {
		return "", errors.New("empty reference")
	}
	return ref, nil
}

func (l *mapLoader) Load(ctx context.Context, location string) (*Recipe, error) {
	l.loads++
	doc, ok := l.docs[location]
	if !ok {
		return nil, errors.New("no such document")
	}
	cp := *doc
	return &cp, nil
}

func weight(w float64) *float64 { return &w }

func oilRecipe(w *float64) *Recipe {
	return &Recipe{
		Products: []Product{
			{Name: "Oil", Source: FactsSource(Facts{Energy: 1000})},
		},
		Dish: Dish{
			Ingredients: []Ingredient{{Product: "Oil", Amount: 10}},
			Weight:      w,
		},
	}
}

func TestResolveScaling(t *testing.T) {
	tests := []struct {
		name   string
		weight *float64
		want   float64
	}{
		{"explicit weight", weight(20), 500},
		{"implicit weight", nil, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, err := NewResolver(nil).Resolve(context.Background(), oilRecipe(tt.weight))
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !facts.Equal(Facts{Energy: tt.want}, tolerance) {
				t.Fatalf("expected Energy=%v, got %v", tt.want, facts)
			}
		})
	}
}

func TestResolveMixture(t *testing.T) {
	recipe := &Recipe{
		Products: []Product{
			{Name: "Flour", Source: FactsSource(Facts{Energy: 364, Proteins: 10, Fats: 1, Carbohydrates: 76})},
			{Name: "Water", Source: FactsSource(Facts{})},
			{Name: "Butter", Source: FactsSource(Facts{Energy: 717, Fats: 81})},
		},
		Dish: Dish{
			Ingredients: []Ingredient{
				{Product: "Flour", Amount: 500},
				{Product: "Water", Amount: 300},
				{Product: "Butter", Amount: 200},
			},
			Weight: weight(800),
		},
	}

	res, err := NewResolver(nil).Evaluate(context.Background(), recipe)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	want := Facts{
		Energy:        (364*5 + 717*2) / 8.0,
		Proteins:      10 * 5 / 8.0,
		Fats:          (1*5 + 81*2) / 8.0,
		Carbohydrates: 76 * 5 / 8.0,
	}
	if !res.Facts.Equal(want, 1e-6) {
		t.Fatalf("expected %v, got %v", want, res.Facts)
	}
	if res.Basis != 800 || res.TotalMass != 1000 {
		t.Fatalf("expected basis 800 and total mass 1000, got %v and %v", res.Basis, res.TotalMass)
	}
}

func TestResolveProductNotFound(t *testing.T) {
	recipe := &Recipe{
		Products: []Product{
			{Name: "Oil", Source: FactsSource(Facts{Energy: 1000})},
			{Name: "Milk", Source: FactsSource(Facts{Energy: 1000})},
		},
		Dish: Dish{
			Ingredients: []Ingredient{{Product: "cabbage", Amount: 10}},
			Weight:      weight(20),
		},
	}

	_, err := NewResolver(nil).Resolve(context.Background(), recipe)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	var pnf *ProductNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("expected *ProductNotFoundError, got %T", err)
	}
	if pnf.Product != "cabbage" {
		t.Fatalf("expected missing product cabbage, got %q", pnf.Product)
	}
	if strings.Join(pnf.Available, ", ") != "Oil, Milk" {
		t.Fatalf("expected available products in declaration order, got %v", pnf.Available)
	}
	want := "cannot find ingredient in recipe: cabbage possible products: Oil, Milk"
	if err.Error() != want {
		t.Fatalf("expected message %q, got %q", want, err.Error())
	}
}

func TestResolveProductNameIsCaseSensitive(t *testing.T) {
	recipe := oilRecipe(nil)
	recipe.Dish.Ingredients[0].Product = "oil"

	_, err := NewResolver(nil).Resolve(context.Background(), recipe)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestResolveNestedRecipe(t *testing.T) {
	loader := &mapLoader{docs: map[string]*Recipe{
		"sauce.yaml": {
			Products: []Product{{Name: "Base", Source: FactsSource(Facts{Energy: 400})}},
			Dish: Dish{
				Ingredients: []Ingredient{{Product: "Base", Amount: 50}},
				Weight:      weight(100),
			},
		},
	}}

	recipe := &Recipe{
		Products: []Product{{Name: "Sauce", Source: RecipeSource("sauce.yaml")}},
		Dish: Dish{
			Ingredients: []Ingredient{{Product: "Sauce", Amount: 50}},
			Weight:      weight(50),
		},
	}

	facts, err := NewResolver(loader).Resolve(context.Background(), recipe)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !facts.Equal(Facts{Energy: 200}, tolerance) {
		t.Fatalf("expected Energy=200, got %v", facts)
	}
}

func TestResolveCyclicReference(t *testing.T) {
	loader := &mapLoader{docs: map[string]*Recipe{
		"a.yaml": {
			Products: []Product{{Name: "B", Source: RecipeSource("b.yaml")}},
			Dish:     Dish{Ingredients: []Ingredient{{Product: "B", Amount: 10}}},
		},
		"b.yaml": {
			Products: []Product{{Name: "A", Source: RecipeSource("a.yaml")}},
			Dish:     Dish{Ingredients: []Ingredient{{Product: "A", Amount: 10}}},
		},
	}}

	_, err := NewResolver(loader).ResolveLocation(context.Background(), "a.yaml")
	if !errors.Is(err, ErrCyclicReference) {
		t.Fatalf("expected ErrCyclicReference, got %v", err)
	}

	var cyc *CyclicReferenceError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected *CyclicReferenceError, got %T", err)
	}
	if got := strings.Join(cyc.Chain, " -> "); got != "a.yaml -> b.yaml -> a.yaml" {
		t.Fatalf("unexpected chain %q", got)
	}
	if loader.loads != 2 {
		t.Fatalf("expected each document loaded once, got %d loads", loader.loads)
	}
}

func TestResolveSelfReference(t *testing.T) {
	loader := &mapLoader{docs: map[string]*Recipe{
		"self.yaml": {
			Products: []Product{{Name: "Self", Source: RecipeSource("self.yaml")}},
			Dish:     Dish{Ingredients: []Ingredient{{Product: "Self", Amount: 1}}},
		},
	}}

	_, err := NewResolver(loader).ResolveLocation(context.Background(), "self.yaml")
	if !errors.Is(err, ErrCyclicReference) {
		t.Fatalf("expected ErrCyclicReference, got %v", err)
	}
}

func TestResolveSharedSubRecipeIsNotACycle(t *testing.T) {
	loader := &mapLoader{docs: map[string]*Recipe{
		"stock.yaml": {
			Products: []Product{{Name: "Bones", Source: FactsSource(Facts{Proteins: 20})}},
			Dish:     Dish{Ingredients: []Ingredient{{Product: "Bones", Amount: 100}}},
		},
	}}

	recipe := &Recipe{
		Products: []Product{
			{Name: "Stock", Source: RecipeSource("stock.yaml")},
			{Name: "MoreStock", Source: RecipeSource("stock.yaml")},
		},
		Dish: Dish{Ingredients: []Ingredient{
			{Product: "Stock", Amount: 100},
			{Product: "MoreStock", Amount: 100},
		}},
	}

	facts, err := NewResolver(loader).Resolve(context.Background(), recipe)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !facts.Equal(Facts{Proteins: 20}, tolerance) {
		t.Fatalf("expected Proteins=20, got %v", facts)
	}
}

func TestResolveMaxDepth(t *testing.T) {
	docs := map[string]*Recipe{}
	names := []string{"d0", "d1", "d2", "d3", "d4"}
	for i, name := range names {
		doc := &Recipe{Dish: Dish{Ingredients: []Ingredient{{Product: "Next", Amount: 1}}}}
		if i+1 < len(names) {
			doc.Products = []Product{{Name: "Next", Source: RecipeSource(names[i+1])}}
		} else {
			doc.Products = []Product{{Name: "Next", Source: FactsSource(Facts{Fats: 1})}}
		}
		docs[name] = doc
	}
	loader := &mapLoader{docs: docs}

	if _, err := NewResolver(loader, WithMaxDepth(4)).ResolveLocation(context.Background(), "d0"); err != nil {
		t.Fatalf("expected depth 4 to be allowed: %v", err)
	}

	_, err := NewResolver(loader, WithMaxDepth(3)).ResolveLocation(context.Background(), "d0")
	var cyc *CyclicReferenceError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected *CyclicReferenceError, got %v", err)
	}
	if cyc.MaxDepth != 3 {
		t.Fatalf("expected max depth 3 in error, got %d", cyc.MaxDepth)
	}
}

func TestResolveZeroBasisWeight(t *testing.T) {
	tests := []struct {
		name   string
		recipe *Recipe
	}{
		{"empty ingredients", &Recipe{}},
		{"explicit zero weight", oilRecipe(weight(0))},
		{"negative weight", oilRecipe(weight(-5))},
		{"infinite weight", oilRecipe(weight(math.Inf(1)))},
		{"zero amount", &Recipe{
			Products: []Product{{Name: "Oil", Source: FactsSource(Facts{Energy: 1000})}},
			Dish:     Dish{Ingredients: []Ingredient{{Product: "Oil", Amount: 0}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, err := NewResolver(nil).Resolve(context.Background(), tt.recipe)
			if !errors.Is(err, ErrInvalidBasisWeight) {
				t.Fatalf("expected ErrInvalidBasisWeight, got facts=%v err=%v", facts, err)
			}
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	recipe := &Recipe{
		Products: []Product{
			{Name: "Oil", Source: FactsSource(Facts{Energy: 884, Fats: 100})},
			{Name: "Rice", Source: FactsSource(Facts{Energy: 130, Proteins: 2.7, Carbohydrates: 28})},
		},
		Dish: Dish{Ingredients: []Ingredient{
			{Product: "Rice", Amount: 300},
			{Product: "Oil", Amount: 15},
		}},
	}

	r := NewResolver(nil)
	first, err := r.Resolve(context.Background(), recipe)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), recipe)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !first.Equal(second, tolerance) {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
}

func TestResolveKeepsAbsentNutrientsAbsent(t *testing.T) {
	recipe := &Recipe{
		Products: []Product{
			{Name: "Sugar", Source: FactsSource(Facts{Energy: 387, Carbohydrates: 100})},
		},
		Dish: Dish{Ingredients: []Ingredient{{Product: "Sugar", Amount: 50}}},
	}

	facts, err := NewResolver(nil).Resolve(context.Background(), recipe)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, n := range []Nutrition{Proteins, Fats} {
		if _, ok := facts[n]; ok {
			t.Fatalf("expected %s to stay absent, got %v", n, facts)
		}
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 nutrients, got %v", facts)
	}
}

func TestResolveNestedErrorPropagates(t *testing.T) {
	loader := &mapLoader{docs: map[string]*Recipe{
		"dough.yaml": {
			Products: []Product{{Name: "Flour", Source: FactsSource(Facts{Energy: 364})}},
			Dish:     Dish{Ingredients: []Ingredient{{Product: "Yeast", Amount: 5}}},
		},
	}}

	recipe := &Recipe{
		Products: []Product{
			{Name: "Dough", Source: RecipeSource("dough.yaml")},
			{Name: "Missing", Source: RecipeSource("missing.yaml")},
		},
		Dish: Dish{Ingredients: []Ingredient{{Product: "Dough", Amount: 100}}},
	}

	_, err := NewResolver(loader).Resolve(context.Background(), recipe)
	var pnf *ProductNotFoundError
	if !errors.As(err, &pnf) || pnf.Product != "Yeast" {
		t.Fatalf("expected nested ProductNotFoundError for Yeast, got %v", err)
	}
	if !strings.Contains(err.Error(), `product "Dough"`) {
		t.Fatalf("expected error to name the referencing product, got %q", err.Error())
	}

	recipe.Dish.Ingredients[0].Product = "Missing"
	_, err = NewResolver(loader).Resolve(context.Background(), recipe)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if le.Location != "missing.yaml" {
		t.Fatalf("expected load error for missing.yaml, got %q", le.Location)
	}
}

func TestResolveWithoutLoader(t *testing.T) {
	recipe := &Recipe{
		Products: []Product{{Name: "Sauce", Source: RecipeSource("sauce.yaml")}},
		Dish:     Dish{Ingredients: []Ingredient{{Product: "Sauce", Amount: 1}}},
	}

	_, err := NewResolver(nil).Resolve(context.Background(), recipe)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestResolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(nil).Resolve(ctx, oilRecipe(nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolveTraceEvents(t *testing.T) {
	recipe := &Recipe{
		Location: "dish.yaml",
		Products: []Product{
			{Name: "Oil", Source: FactsSource(Facts{Energy: 1000, Fats: 100})},
			{Name: "Rice", Source: FactsSource(Facts{Carbohydrates: 28})},
		},
		Dish: Dish{Ingredients: []Ingredient{
			{Product: "Rice", Amount: 100},
			{Product: "Oil", Amount: 10},
		}},
	}

	var events []Event
	tracer := TracerFunc(func(e Event) { events = append(events, e) })

	if _, err := NewResolver(nil, WithTracer(tracer)).Resolve(context.Background(), recipe); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	wantOrder := []struct {
		product  string
		nutrient Nutrition
	}{
		{"Rice", Carbohydrates},
		{"Oil", Energy},
		{"Oil", Fats},
	}
	for i, w := range wantOrder {
		e := events[i]
		if e.Kind != EventContribution || e.Product != w.product || e.Nutrient != w.nutrient {
			t.Fatalf("event %d: expected %s/%s, got %+v", i, w.product, w.nutrient, e)
		}
		if e.Recipe != "dish.yaml" {
			t.Fatalf("event %d: expected recipe dish.yaml, got %q", i, e.Recipe)
		}
	}
	if events[1].Contribution != 100 {
		t.Fatalf("expected Oil energy contribution 100, got %v", events[1].Contribution)
	}

	last := events[3]
	if last.Kind != EventTotals || last.TotalMass != 110 {
		t.Fatalf("expected totals event with mass 110, got %+v", last)
	}
}
