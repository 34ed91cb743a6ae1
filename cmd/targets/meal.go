package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lg/biteright-go-api/internal/nutrition"
)

var mealItems []string

var mealCmd = &cobra.Command{
	Use:   "meal",
	Short: "Total nutrition for a list of ingredients",
	Long: `Each --item is ref:amount:unit where ref is
portion_size,calories,protein,carb,fat of the ingredient, e.g.
  --item 100,389,16.9,66.3,6.9:40:g   (40 g of oats)
  --item 50,72,6.3,0.4,4.8:2:portion  (two eggs)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(mealItems) == 0 {
			return fmt.Errorf("at least one --item is required")
		}
		items := make([]nutrition.ConsumedItem, 0, len(mealItems))
		for _, raw := range mealItems {
			it, err := parseItem(raw)
			if err != nil {
				return err
			}
			items = append(items, it)
		}
		totals, err := nutrition.Aggregate(items)
		if err != nil {
			return err
		}
		totals = totals.Rounded()
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), totals)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Calories: %.0f kcal\n", totals.Calories)
		fmt.Fprintf(out, "Protein:  %.0f g\n", totals.Protein)
		fmt.Fprintf(out, "Carbs:    %.0f g\n", totals.Carb)
		fmt.Fprintf(out, "Fat:      %.0f g\n", totals.Fat)
		return nil
	},
}

// parseItem parses one ref:amount:unit argument.
func parseItem(raw string) (nutrition.ConsumedItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return nutrition.ConsumedItem{}, fmt.Errorf("invalid --item %q (expected ref:amount:unit)", raw)
	}
	ref := strings.Split(parts[0], ",")
	if len(ref) != 5 {
		return nutrition.ConsumedItem{}, fmt.Errorf("invalid --item %q: ref needs portion_size,calories,protein,carb,fat", raw)
	}
	vals := make([]float64, 5)
	for i, s := range ref {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nutrition.ConsumedItem{}, fmt.Errorf("invalid --item %q: %v", raw, err)
		}
		vals[i] = v
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || amount <= 0 {
		return nutrition.ConsumedItem{}, fmt.Errorf("invalid --item %q: amount must be > 0", raw)
	}
	unit, err := nutrition.ParseUnit(parts[2])
	if err != nil {
		return nutrition.ConsumedItem{}, fmt.Errorf("invalid --item %q: %v", raw, err)
	}
	return nutrition.ConsumedItem{
		Ingredient: nutrition.IngredientRef{
			ReferenceAmount: vals[0],
			Calories:        vals[1],
			Protein:         vals[2],
			Carb:            vals[3],
			Fat:             vals[4],
		},
		Amount: amount,
		Unit:   unit,
	}, nil
}

func init() {
	mealCmd.Flags().StringArrayVar(&mealItems, "item", nil, "Ingredient as ref:amount:unit (repeatable)")
	rootCmd.AddCommand(mealCmd)
}
