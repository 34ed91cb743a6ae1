package main

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lg/biteright-go-api/internal/nutrition"
)

// doRecipeRequest runs a recipe handler with no database behind it, so only
// requests rejected before any query are meaningful.
func doRecipeRequest(method, path, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	h := &Handler{}
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("user_id", 1); c.Next() })
	router.POST("/api/recipes", h.createRecipe)
	router.PUT("/api/recipes/:id", h.updateRecipe)
	router.POST("/api/recipes/:id/log", h.logRecipe)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecipeTotals(t *testing.T) {
	// 200 g rice (130 kcal / 100 g) + 1 portion of chicken (165 kcal / 100 g portion).
	totals, err := recipeTotals([]recipeContent{
		{RecipeID: 4, IngredientID: 1, Amount: 200, Unit: "g", PortionSize: 100, Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3},
		{RecipeID: 4, IngredientID: 2, Amount: 1, Unit: "portion", PortionSize: 100, Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6},
	})
	require.NoError(t, err)
	assert.InDelta(t, 425, totals.Calories, 1e-9)
	assert.InDelta(t, 36.4, totals.Protein, 1e-9)
	assert.InDelta(t, 56, totals.Carb, 1e-9)
	assert.InDelta(t, 4.2, totals.Fat, 1e-9)

	assert.Equal(t, nutritionTotals{Calories: 425, Protein: 36, Carbs: 56, Fat: 4}, toNutritionTotals(totals))
}

func TestRecipeTotals_Empty(t *testing.T) {
	totals, err := recipeTotals(nil)
	require.NoError(t, err)
	assert.Equal(t, nutrition.Totals{}, totals)
}

func TestRecipeTotals_RejectsZeroPortionSize(t *testing.T) {
	_, err := recipeTotals([]recipeContent{{Amount: 10, Unit: "g", PortionSize: 0, Calories: 50}})
	assert.ErrorIs(t, err, nutrition.ErrInvalidArgument)
}

func TestRecipeContentAsMealContent(t *testing.T) {
	rc := recipeContent{ID: 9, RecipeID: 3, IngredientID: 7, Amount: 2, Unit: "portion", Name: "Egg", PortionSize: 50, Calories: 72}
	mc := rc.asMealContent()
	assert.Equal(t, int64(9), mc.ID)
	assert.Equal(t, int64(7), mc.IngredientID)
	assert.Equal(t, "Egg", mc.Name)
	assert.Zero(t, mc.MealID)
}

func TestServingsOrDefault(t *testing.T) {
	s, err := servingsOrDefault(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)

	s, err = servingsOrDefault(ptr(2.5))
	require.NoError(t, err)
	assert.Equal(t, 2.5, s)

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := servingsOrDefault(ptr(bad))
		assert.Error(t, err, "servings %v", bad)
	}
}

func TestCreateRecipe_Rejects(t *testing.T) {
	cases := map[string]string{
		"no name":   `{"name":"  ","items":[{"ingredient_id":1,"amount":100,"unit":"g"}]}`,
		"no items":  `{"name":"Porridge","items":[]}`,
		"bad unit":  `{"name":"Porridge","items":[{"ingredient_id":1,"amount":100,"unit":"cup"}]}`,
		"bad ref":   `{"name":"Porridge","items":[{"ingredient_id":0,"amount":100,"unit":"g"}]}`,
		"not json":  `{`,
		"neg grams": `{"name":"Porridge","items":[{"ingredient_id":1,"amount":-5,"unit":"g"}]}`,
	}
	for name, body := range cases {
		w := doRecipeRequest("POST", "/api/recipes", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestUpdateRecipe_Rejects(t *testing.T) {
	cases := map[string]string{
		"blank name":  `{"name":""}`,
		"empty items": `{"items":[]}`,
		"bad amount":  `{"items":[{"ingredient_id":1,"amount":0,"unit":"g"}]}`,
	}
	for name, body := range cases {
		w := doRecipeRequest("PUT", "/api/recipes/5", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestLogRecipe_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad meal type": `{"meal_type":"brunch"}`,
		"zero servings": `{"meal_type":"lunch","servings":0}`,
		"neg servings":  `{"meal_type":"lunch","servings":-2}`,
	}
	for name, body := range cases {
		w := doRecipeRequest("POST", "/api/recipes/5/log", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}
