package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lg/biteright-go-api/internal/nutrition"
)

func doPreviewRequest(body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	h := &Handler{}
	router := gin.New()
	router.POST("/api/meals/preview", h.previewMeal)

	req := httptest.NewRequest("POST", "/api/meals/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPreviewMeal(t *testing.T) {
	w := doPreviewRequest(`{"items":[
		{"ingredient":{"portion_size":100,"calories":200,"protein":10,"carbs":20,"fat":5},"amount":50,"unit":"g"},
		{"ingredient":{"portion_size":50,"calories":72,"protein":6,"carbs":0,"fat":5},"amount":2,"unit":"portion"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp previewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 100.0, resp.Items[0].Calories)
	assert.Equal(t, 144.0, resp.Items[1].Calories)
	assert.Equal(t, nutritionTotals{Calories: 244, Protein: 17, Carbs: 10, Fat: 13}, resp.Totals)
}

func TestPreviewMeal_Empty(t *testing.T) {
	w := doPreviewRequest(`{"items":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"totals":{"calories":0,"protein":0,"carbs":0,"fat":0}}`, w.Body.String())
}

func TestPreviewMeal_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad unit":       `{"items":[{"ingredient":{"portion_size":100},"amount":1,"unit":"cup"}]}`,
		"zero amount":    `{"items":[{"ingredient":{"portion_size":100},"amount":0,"unit":"g"}]}`,
		"zero reference": `{"items":[{"ingredient":{"portion_size":0,"calories":10},"amount":5,"unit":"g"}]}`,
		"not json":       `{`,
	}
	for name, body := range cases {
		w := doPreviewRequest(body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestConsumedItems(t *testing.T) {
	items, err := consumedItems([]mealContent{
		{IngredientID: 3, Amount: 2, Unit: "portion", PortionSize: 30, Calories: 120, Protein: 4, Carbs: 20, Fat: 2},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, nutrition.Portions, items[0].Unit)
	assert.Equal(t, int64(3), items[0].Ingredient.ID)
	assert.Equal(t, 30.0, items[0].Ingredient.ReferenceAmount)
	assert.Equal(t, 60.0, items[0].Grams())

	_, err = consumedItems([]mealContent{{Unit: "tbsp", PortionSize: 10}})
	assert.ErrorIs(t, err, nutrition.ErrInvalidArgument)
}

func TestMealTotals(t *testing.T) {
	totals, err := mealTotals([]mealContent{
		{Amount: 150, Unit: "g", PortionSize: 100, Calories: 100, Protein: 2},
		{Amount: 1, Unit: "portion", PortionSize: 40, Calories: 150, Protein: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 300.0, totals.Calories)
	assert.Equal(t, 8.0, totals.Protein)
}

func TestValidateMealItems(t *testing.T) {
	assert.NoError(t, validateMealItems([]mealItemRequest{{IngredientID: 1, Amount: 50, Unit: "g"}}))
	assert.NoError(t, validateMealItems([]mealItemRequest{{IngredientID: 1, Amount: 1, Unit: ""}}))

	bad := [][]mealItemRequest{
		nil,
		{{IngredientID: 0, Amount: 50, Unit: "g"}},
		{{IngredientID: 1, Amount: -1, Unit: "g"}},
		{{IngredientID: 1, Amount: 1, Unit: "slice"}},
	}
	for i, items := range bad {
		assert.Error(t, validateMealItems(items), "case %d", i)
	}
}

func TestMealContentsError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ingredientLinesError(c, fmt.Errorf("insert: %w", &pgconn.PgError{Code: foreignKeyViolation}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ingredientLinesError(c, errors.New("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
