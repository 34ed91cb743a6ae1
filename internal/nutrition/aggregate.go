package nutrition

import (
	"fmt"
	"math"
	"strings"
)

type Unit string

const (
	Grams    Unit = "g"
	Portions Unit = "portion"
)

// ParseUnit normalizes a user supplied unit. Empty means grams.
func ParseUnit(raw string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "g", "gram", "grams":
		return Grams, nil
	case "portion", "portions":
		return Portions, nil
	}
	return "", fmt.Errorf("unsupported unit %q (expected g or portion): %w", raw, ErrInvalidArgument)
}

// IngredientRef is an ingredient's published nutrition, defined against
// ReferenceAmount grams.
type IngredientRef struct {
	ID              int64   `json:"id"`
	ReferenceAmount float64 `json:"portion_size"`
	Calories        float64 `json:"calories"`
	Protein         float64 `json:"protein"`
	Carb            float64 `json:"carbs"`
	Fat             float64 `json:"fat"`
}

// ConsumedItem is an amount of one ingredient eaten. Portions are already
// normalized to the reference amount.
type ConsumedItem struct {
	Ingredient IngredientRef
	Amount     float64
	Unit       Unit
}

// Multiplier is how many reference amounts the item represents.
func (it ConsumedItem) Multiplier() float64 {
	if it.Unit == Portions {
		return it.Amount
	}
	return it.Amount / it.Ingredient.ReferenceAmount
}

// Grams converts the consumed amount to grams.
func (it ConsumedItem) Grams() float64 {
	if it.Unit == Portions {
		return it.Amount * it.Ingredient.ReferenceAmount
	}
	return it.Amount
}

// Totals is summed nutrition.
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carb     float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Carb:     t.Carb + o.Carb,
		Fat:      t.Fat + o.Fat,
	}
}

// Rounded rounds every field to the nearest whole unit for display.
func (t Totals) Rounded() Totals {
	return Totals{
		Calories: math.Round(t.Calories),
		Protein:  math.Round(t.Protein),
		Carb:     math.Round(t.Carb),
		Fat:      math.Round(t.Fat),
	}
}

// Contribution is the nutrition one item adds.
func (it ConsumedItem) Contribution() Totals {
	m := it.Multiplier()
	return Totals{
		Calories: it.Ingredient.Calories * m,
		Protein:  it.Ingredient.Protein * m,
		Carb:     it.Ingredient.Carb * m,
		Fat:      it.Ingredient.Fat * m,
	}
}

// Aggregate sums the contribution of every item. An ingredient with a
// non-positive reference amount is rejected rather than producing Inf/NaN.
func Aggregate(items []ConsumedItem) (Totals, error) {
	var total Totals
	for i, it := range items {
		if it.Ingredient.ReferenceAmount <= 0 || math.IsNaN(it.Ingredient.ReferenceAmount) {
			return Totals{}, fmt.Errorf("item %d: ingredient %d reference amount must be > 0: %w",
				i, it.Ingredient.ID, ErrInvalidArgument)
		}
		total = total.Add(it.Contribution())
	}
	return total, nil
}

// AggregateMany sums several meals or days.
func AggregateMany(groups [][]ConsumedItem) (Totals, error) {
	var total Totals
	for _, g := range groups {
		t, err := Aggregate(g)
		if err != nil {
			return Totals{}, err
		}
		total = total.Add(t)
	}
	return total, nil
}

// MacroProgress compares one consumed nutrient against its limit.
type MacroProgress struct {
	Consumed  float64 `json:"consumed"`
	Limit     int     `json:"limit"`
	Remaining float64 `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// DayProgress is consumption against every daily limit.
type DayProgress struct {
	Calories MacroProgress `json:"calories"`
	Protein  MacroProgress `json:"protein"`
	Carbs    MacroProgress `json:"carbs"`
	Fat      MacroProgress `json:"fat"`
}

// Progress compares totals against targets. Remaining may go negative when a
// limit is exceeded; Percent is 0 for a zero limit.
func Progress(targets Targets, totals Totals) DayProgress {
	return DayProgress{
		Calories: progressOf(totals.Calories, targets.CalorieLimit),
		Protein:  progressOf(totals.Protein, targets.ProteinLimit),
		Carbs:    progressOf(totals.Carb, targets.CarbLimit),
		Fat:      progressOf(totals.Fat, targets.FatLimit),
	}
}

func progressOf(consumed float64, limit int) MacroProgress {
	p := MacroProgress{
		Consumed:  consumed,
		Limit:     limit,
		Remaining: float64(limit) - consumed,
	}
	if limit > 0 {
		p.Percent = math.Round(consumed/float64(limit)*1000) / 10
	}
	return p
}
