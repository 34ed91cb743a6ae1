package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lg/biteright-go-api/internal/nutrition"
)

// run executes rootCmd with args after resetting flag-bound globals, since
// cobra keeps values from earlier runs in the same process.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOut = false
	calcWeight, calcHeight, calcAge = 0, 0, 0
	calcActivity, calcGoal = string(nutrition.Moderate), string(nutrition.Maintain)
	calcGoalWeight, calcGoalDate = 0, ""
	bmiWeight, bmiHeight = 0, 0
	mealItems = nil

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "calc")
	assert.Contains(t, out, "meal")
}

func TestCalc_MaintainJSON(t *testing.T) {
	out, err := run(t, "calc", "--weight", "70", "--height", "175", "--age", "30", "--json")
	require.NoError(t, err)

	var got nutrition.Targets
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2556, got.CalorieLimit)
	assert.Equal(t, 112, got.ProteinLimit)
}

func TestCalc_TextOutput(t *testing.T) {
	out, err := run(t, "calc", "--weight", "70", "--height", "175", "--age", "30", "--goal", "lose")
	require.NoError(t, err)
	assert.Contains(t, out, "TDEE:     2556 kcal")
	assert.Contains(t, out, "Calories: 2056 kcal")
}

func TestCalc_RejectsInvalidInput(t *testing.T) {
	_, err := run(t, "calc", "--weight", "70", "--height", "175", "--age", "30", "--activity", "couch")
	assert.Error(t, err)

	_, err = run(t, "calc", "--weight", "0", "--height", "175", "--age", "30")
	assert.ErrorIs(t, err, nutrition.ErrInvalidArgument)

	_, err = run(t, "calc", "--weight", "70", "--height", "175", "--age", "30", "--goal-date", "soon")
	assert.Error(t, err)
}

func TestBMI(t *testing.T) {
	out, err := run(t, "bmi", "--weight", "70", "--height", "175")
	require.NoError(t, err)
	assert.Equal(t, "BMI: 22.9\n", out)

	_, err = run(t, "bmi", "--weight", "70")
	assert.Error(t, err)
}

func TestMeal_SumsItems(t *testing.T) {
	out, err := run(t, "meal",
		"--item", "100,200,10,20,5:50:g",
		"--item", "50,72,6,0,5:2:portion",
		"--json")
	require.NoError(t, err)

	var got nutrition.Totals
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	// 50 g of the first is half its reference; two portions double the second.
	assert.Equal(t, nutrition.Totals{Calories: 244, Protein: 17, Carb: 10, Fat: 13}, got)
}

func TestParseItem(t *testing.T) {
	it, err := parseItem("100,389,16.9,66.3,6.9:40:grams")
	require.NoError(t, err)
	assert.Equal(t, nutrition.Grams, it.Unit)
	assert.Equal(t, 40.0, it.Amount)
	assert.Equal(t, 100.0, it.Ingredient.ReferenceAmount)

	bad := []string{
		"100,389:40:g",             // short ref
		"100,389,16.9,66.3,6.9:40", // missing unit
		"100,389,16.9,66.3,6.9:0:g",
		"100,389,16.9,66.3,6.9:40:cup",
		"a,389,16.9,66.3,6.9:40:g",
	}
	for _, raw := range bad {
		_, err := parseItem(raw)
		assert.Error(t, err, raw)
	}
}

func TestMeal_RequiresItem(t *testing.T) {
	_, err := run(t, "meal")
	assert.Error(t, err)
}
