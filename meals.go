package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"lg/biteright-go-api/internal/events"
	"lg/biteright-go-api/internal/nutrition"
)

// validMealTypes is the set of allowed values for meals.meal_type.
// Reject unknown values with 400 rather than letting the DB return a cryptic 500.
var validMealTypes = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

// foreignKeyViolation is the PostgreSQL SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

/* ─── Aggregation glue ───────────────────────────────────────────────── */

// consumedItems converts joined meal_contents rows into aggregator input.
func consumedItems(contents []mealContent) ([]nutrition.ConsumedItem, error) {
	items := make([]nutrition.ConsumedItem, 0, len(contents))
	for _, mc := range contents {
		unit, err := nutrition.ParseUnit(mc.Unit)
		if err != nil {
			return nil, err
		}
		items = append(items, nutrition.ConsumedItem{
			Ingredient: nutrition.IngredientRef{
				ID:              mc.IngredientID,
				ReferenceAmount: mc.PortionSize,
				Calories:        mc.Calories,
				Protein:         mc.Protein,
				Carb:            mc.Carbs,
				Fat:             mc.Fat,
			},
			Amount: mc.Amount,
			Unit:   unit,
		})
	}
	return items, nil
}

// toNutritionTotals rounds aggregator output for JSON responses.
func toNutritionTotals(t nutrition.Totals) nutritionTotals {
	r := t.Rounded()
	return nutritionTotals{Calories: r.Calories, Protein: r.Protein, Carbs: r.Carb, Fat: r.Fat}
}

// mealTotals sums a meal's contents.
func mealTotals(contents []mealContent) (nutrition.Totals, error) {
	items, err := consumedItems(contents)
	if err != nil {
		return nutrition.Totals{}, err
	}
	return nutrition.Aggregate(items)
}

// validateMealItems checks amounts and units before anything is written.
func validateMealItems(items []mealItemRequest) error {
	if len(items) == 0 {
		return fmt.Errorf("items must not be empty")
	}
	for i, it := range items {
		if it.IngredientID <= 0 {
			return fmt.Errorf("items[%d].ingredient_id is required", i)
		}
		if it.Amount <= 0 {
			return fmt.Errorf("items[%d].amount must be > 0", i)
		}
		if _, err := nutrition.ParseUnit(it.Unit); err != nil {
			return fmt.Errorf("items[%d].unit must be g or portion", i)
		}
	}
	return nil
}

/* ─── Loading ────────────────────────────────────────────────────────── */

const mealContentColumns = `mc.id, mc.meal_id, mc.ingredient_id, mc.amount, mc.unit,
	i.name, i.brand, i.portion_size, i.calories, i.protein, i.carbs, i.fat`

// attachContents loads contents for every meal in one query and fills totals.
func (h *Handler) attachContents(ctx context.Context, q pgxQuerier, meals []meal) error {
	if len(meals) == 0 {
		return nil
	}
	ids := make([]int, len(meals))
	for i, m := range meals {
		ids[i] = m.ID
	}

	contents, err := queryMany[mealContent](q, ctx,
		`SELECT `+mealContentColumns+`
		 FROM meal_contents mc JOIN ingredients i ON i.id = mc.ingredient_id
		 WHERE mc.meal_id = ANY(@ids)
		 ORDER BY mc.id`,
		pgx.NamedArgs{"ids": ids})
	if err != nil {
		return err
	}

	byMeal := make(map[int][]mealContent, len(meals))
	for _, mc := range contents {
		byMeal[mc.MealID] = append(byMeal[mc.MealID], mc)
	}
	for i := range meals {
		meals[i].Contents = byMeal[meals[i].ID]
		if meals[i].Contents == nil {
			meals[i].Contents = []mealContent{}
		}
		totals, err := mealTotals(meals[i].Contents)
		if err != nil {
			return fmt.Errorf("meal %d: %w", meals[i].ID, err)
		}
		meals[i].Totals = toNutritionTotals(totals)
	}
	return nil
}

// loadMeal fetches one meal owned by userID with contents and totals.
func (h *Handler) loadMeal(ctx context.Context, q pgxQuerier, id string, userID int) (meal, error) {
	m, err := queryOne[meal](q, ctx,
		"SELECT * FROM meals WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		return meal{}, err
	}
	meals := []meal{m}
	if err := h.attachContents(ctx, q, meals); err != nil {
		return meal{}, err
	}
	return meals[0], nil
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// getMeals returns the user's meals for a day with contents and totals.
// GET /api/meals?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getMeals(c *gin.Context) {
	userID := c.GetInt("user_id")
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	meals, err := queryMany[meal](h.db, c,
		`SELECT * FROM meals
		 WHERE user_id = @userID AND meal_date::date = @date
		 ORDER BY meal_date, id`,
		pgx.NamedArgs{"userID": userID, "date": date})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meals")
		return
	}
	if meals == nil {
		meals = []meal{}
	}
	if err := h.attachContents(c, h.db, meals); err != nil {
		log.Printf("[getMeals] contents for user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to fetch meal contents")
		return
	}

	c.JSON(http.StatusOK, meals)
}

// getMeal returns one meal. GET /api/meals/:id.
func (h *Handler) getMeal(c *gin.Context) {
	m, err := h.loadMeal(c, h.db, c.Param("id"), c.GetInt("user_id"))
	if err != nil {
		notFoundOr500(c, err, "meal not found", "failed to fetch meal")
		return
	}
	c.JSON(http.StatusOK, m)
}

// createMeal inserts a meal and its contents in one transaction.
// POST /api/meals. meal_date defaults to now; name defaults to the meal type.
func (h *Handler) createMeal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.MealType = strings.ToLower(strings.TrimSpace(body.MealType))
	if !validMealTypes[body.MealType] {
		apiError(c, http.StatusBadRequest, "meal_type must be one of: breakfast, lunch, dinner, snack")
		return
	}
	if err := validateMealItems(body.Items); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		body.Name = body.MealType
	}
	mealDate := time.Now()
	if body.MealDate != nil {
		mealDate = *body.MealDate
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create meal")
		return
	}
	defer tx.Rollback(c)

	m, err := queryOne[meal](tx, c,
		`INSERT INTO meals (user_id, name, description, meal_type, meal_date)
		 VALUES (@userID, @name, @description, @mealType, @mealDate)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "name": strings.TrimSpace(body.Name), "description": body.Description,
			"mealType": body.MealType, "mealDate": mealDate,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create meal")
		return
	}
	if err := insertMealContents(c, tx, m.ID, body.Items); err != nil {
		ingredientLinesError(c, err)
		return
	}

	full, err := h.loadMeal(c, tx, fmt.Sprint(m.ID), userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to load meal")
		return
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create meal")
		return
	}

	mealsLogged.Inc()
	h.publish(events.MealLogged, userID, gin.H{"meal_id": full.ID, "totals": full.Totals})
	c.JSON(http.StatusCreated, full)
}

// updateMeal patches meal fields and, when items is present, replaces the contents.
// PUT /api/meals/:id. Uses COALESCE so omitted fields keep their current value.
func (h *Handler) updateMeal(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	var body updateMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.MealType != nil {
		mt := strings.ToLower(strings.TrimSpace(*body.MealType))
		if !validMealTypes[mt] {
			apiError(c, http.StatusBadRequest, "meal_type must be one of: breakfast, lunch, dinner, snack")
			return
		}
		body.MealType = &mt
	}
	if body.Items != nil {
		if err := validateMealItems(*body.Items); err != nil {
			apiError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update meal")
		return
	}
	defer tx.Rollback(c)

	m, err := queryOne[meal](tx, c,
		`UPDATE meals SET
			name = COALESCE(@name, name),
			description = COALESCE(@description, description),
			meal_type = COALESCE(@mealType, meal_type),
			meal_date = COALESCE(@mealDate, meal_date),
			updated_at = now()
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{
			"id": id, "userID": userID,
			"name": body.Name, "description": body.Description,
			"mealType": body.MealType, "mealDate": body.MealDate,
		})
	if err != nil {
		notFoundOr500(c, err, "meal not found", "failed to update meal")
		return
	}

	if body.Items != nil {
		if _, err := tx.Exec(c, "DELETE FROM meal_contents WHERE meal_id = @mealID",
			pgx.NamedArgs{"mealID": m.ID}); err != nil {
			apiError(c, http.StatusInternalServerError, "failed to update meal contents")
			return
		}
		if err := insertMealContents(c, tx, m.ID, *body.Items); err != nil {
			ingredientLinesError(c, err)
			return
		}
	}

	full, err := h.loadMeal(c, tx, id, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to load meal")
		return
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update meal")
		return
	}

	c.JSON(http.StatusOK, full)
}

// deleteMeal removes a meal; contents cascade. Returns 204 on success.
// DELETE /api/meals/:id.
func (h *Handler) deleteMeal(c *gin.Context) {
	result, err := h.db.Exec(c,
		"DELETE FROM meals WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": c.Param("id"), "userID": c.GetInt("user_id")})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete meal")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "meal not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// previewItem is one line of POST /api/meals/preview: the ingredient's
// reference nutrition is sent inline, nothing is read from the catalog.
type previewItem struct {
	Ingredient nutrition.IngredientRef `json:"ingredient"`
	Amount     float64                 `json:"amount"`
	Unit       string                  `json:"unit"`
}

type previewResponse struct {
	Items  []nutritionTotals `json:"items"`
	Totals nutritionTotals   `json:"totals"`
}

// previewMeal computes per-item and total nutrition for an unsaved meal so the
// meal builder can show running totals. POST /api/meals/preview.
func (h *Handler) previewMeal(c *gin.Context) {
	var body struct {
		Items []previewItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]nutrition.ConsumedItem, 0, len(body.Items))
	resp := previewResponse{Items: make([]nutritionTotals, 0, len(body.Items))}
	for i, it := range body.Items {
		unit, err := nutrition.ParseUnit(it.Unit)
		if err != nil {
			apiError(c, http.StatusBadRequest, fmt.Sprintf("items[%d].unit must be g or portion", i))
			return
		}
		if it.Amount <= 0 {
			apiError(c, http.StatusBadRequest, fmt.Sprintf("items[%d].amount must be > 0", i))
			return
		}
		items = append(items, nutrition.ConsumedItem{Ingredient: it.Ingredient, Amount: it.Amount, Unit: unit})
	}

	total, err := nutrition.Aggregate(items)
	if err != nil {
		apiError(c, http.StatusBadRequest, "every ingredient needs portion_size > 0")
		return
	}
	for _, it := range items {
		resp.Items = append(resp.Items, toNutritionTotals(it.Contribution()))
	}
	resp.Totals = toNutritionTotals(total)

	c.JSON(http.StatusOK, resp)
}

func insertMealContents(ctx context.Context, tx pgx.Tx, mealID int, items []mealItemRequest) error {
	for _, it := range items {
		unit, _ := nutrition.ParseUnit(it.Unit)
		if _, err := tx.Exec(ctx,
			`INSERT INTO meal_contents (meal_id, ingredient_id, amount, unit)
			 VALUES (@mealID, @ingredientID, @amount, @unit)`,
			pgx.NamedArgs{"mealID": mealID, "ingredientID": it.IngredientID, "amount": it.Amount, "unit": string(unit)}); err != nil {
			return err
		}
	}
	return nil
}

// ingredientLinesError turns an unknown ingredient into a 400. Shared by
// meal and recipe contents.
func ingredientLinesError(c *gin.Context, err error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		apiError(c, http.StatusBadRequest, "unknown ingredient_id")
		return
	}
	log.Printf("[ingredientLines] insert error: %v", err)
	apiError(c, http.StatusInternalServerError, "failed to save contents")
}
