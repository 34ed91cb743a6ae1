package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/biteright-go-api/internal/events"
	"lg/biteright-go-api/internal/nutrition"
)

const recipeContentColumns = `rc.id, rc.recipe_id, rc.ingredient_id, rc.amount, rc.unit,
	i.name, i.brand, i.portion_size, i.calories, i.protein, i.carbs, i.fat`

// asMealContent lets recipe lines reuse the meal aggregation helpers.
func (rc recipeContent) asMealContent() mealContent {
	return mealContent{
		ID:           rc.ID,
		IngredientID: rc.IngredientID,
		Amount:       rc.Amount,
		Unit:         rc.Unit,
		Name:         rc.Name,
		Brand:        rc.Brand,
		PortionSize:  rc.PortionSize,
		Calories:     rc.Calories,
		Protein:      rc.Protein,
		Carbs:        rc.Carbs,
		Fat:          rc.Fat,
	}
}

// recipeTotals sums a recipe's contents.
func recipeTotals(contents []recipeContent) (nutrition.Totals, error) {
	lines := make([]mealContent, len(contents))
	for i, rc := range contents {
		lines[i] = rc.asMealContent()
	}
	return mealTotals(lines)
}

func validateRecipe(name string, items []mealItemRequest) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	return validateMealItems(items)
}

// servingsOrDefault validates the optional servings multiplier.
func servingsOrDefault(servings *float64) (float64, error) {
	if servings == nil {
		return 1, nil
	}
	if *servings <= 0 || math.IsNaN(*servings) || math.IsInf(*servings, 0) {
		return 0, fmt.Errorf("servings must be > 0")
	}
	return *servings, nil
}

// attachRecipeContents loads contents for every recipe in one query and fills totals.
func (h *Handler) attachRecipeContents(ctx context.Context, q pgxQuerier, recipes []recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]int, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
	}

	contents, err := queryMany[recipeContent](q, ctx,
		`SELECT `+recipeContentColumns+`
		 FROM recipe_contents rc JOIN ingredients i ON i.id = rc.ingredient_id
		 WHERE rc.recipe_id = ANY(@ids)
		 ORDER BY rc.id`,
		pgx.NamedArgs{"ids": ids})
	if err != nil {
		return err
	}

	byRecipe := make(map[int][]recipeContent, len(recipes))
	for _, rc := range contents {
		byRecipe[rc.RecipeID] = append(byRecipe[rc.RecipeID], rc)
	}
	for i := range recipes {
		recipes[i].Contents = byRecipe[recipes[i].ID]
		if recipes[i].Contents == nil {
			recipes[i].Contents = []recipeContent{}
		}
		totals, err := recipeTotals(recipes[i].Contents)
		if err != nil {
			return fmt.Errorf("recipe %d: %w", recipes[i].ID, err)
		}
		recipes[i].Totals = toNutritionTotals(totals)
	}
	return nil
}

// loadRecipe fetches one recipe owned by userID with contents and totals.
func (h *Handler) loadRecipe(ctx context.Context, q pgxQuerier, id string, userID int) (recipe, error) {
	r, err := queryOne[recipe](q, ctx,
		"SELECT * FROM recipes WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		return recipe{}, err
	}
	recipes := []recipe{r}
	if err := h.attachRecipeContents(ctx, q, recipes); err != nil {
		return recipe{}, err
	}
	return recipes[0], nil
}

func insertRecipeContents(ctx context.Context, tx pgx.Tx, recipeID int, items []mealItemRequest) error {
	for _, it := range items {
		unit, _ := nutrition.ParseUnit(it.Unit)
		if _, err := tx.Exec(ctx,
			`INSERT INTO recipe_contents (recipe_id, ingredient_id, amount, unit)
			 VALUES (@recipeID, @ingredientID, @amount, @unit)`,
			pgx.NamedArgs{"recipeID": recipeID, "ingredientID": it.IngredientID, "amount": it.Amount, "unit": string(unit)}); err != nil {
			return err
		}
	}
	return nil
}

// searchRecipes returns the user's recipes whose name contains ?name=
// (case-insensitive; all recipes when empty). GET /api/recipes.
func (h *Handler) searchRecipes(c *gin.Context) {
	userID := c.GetInt("user_id")
	recipes, err := queryMany[recipe](h.db, c,
		`SELECT * FROM recipes
		 WHERE user_id = @userID AND name ILIKE '%' || @name || '%'
		 ORDER BY lower(name), id
		 LIMIT 100`,
		pgx.NamedArgs{"userID": userID, "name": strings.TrimSpace(c.Query("name"))})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch recipes")
		return
	}
	if recipes == nil {
		recipes = []recipe{}
	}
	if err := h.attachRecipeContents(c, h.db, recipes); err != nil {
		log.Printf("[searchRecipes] contents for user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to fetch recipe contents")
		return
	}

	c.JSON(http.StatusOK, recipes)
}

// getRecipe returns one recipe. GET /api/recipes/:id.
func (h *Handler) getRecipe(c *gin.Context) {
	r, err := h.loadRecipe(c, h.db, c.Param("id"), c.GetInt("user_id"))
	if err != nil {
		notFoundOr500(c, err, "recipe not found", "failed to fetch recipe")
		return
	}
	c.JSON(http.StatusOK, r)
}

// getRecipeMacros returns the summed nutrition of a recipe.
// GET /api/recipes/:id/macros.
func (h *Handler) getRecipeMacros(c *gin.Context) {
	r, err := h.loadRecipe(c, h.db, c.Param("id"), c.GetInt("user_id"))
	if err != nil {
		notFoundOr500(c, err, "recipe not found", "failed to compute recipe macros")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe_id": r.ID, "totals": r.Totals})
}

// createRecipe inserts a recipe and its contents in one transaction.
// POST /api/recipes.
func (h *Handler) createRecipe(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createRecipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRecipe(body.Name, body.Items); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create recipe")
		return
	}
	defer tx.Rollback(c)

	r, err := queryOne[recipe](tx, c,
		`INSERT INTO recipes (user_id, name, description, image_url)
		 VALUES (@userID, @name, @description, @imageURL)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "name": strings.TrimSpace(body.Name),
			"description": body.Description, "imageURL": strings.TrimSpace(body.ImageURL),
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create recipe")
		return
	}
	if err := insertRecipeContents(c, tx, r.ID, body.Items); err != nil {
		ingredientLinesError(c, err)
		return
	}

	full, err := h.loadRecipe(c, tx, fmt.Sprint(r.ID), userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to load recipe")
		return
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create recipe")
		return
	}

	c.JSON(http.StatusCreated, full)
}

// updateRecipe patches recipe fields and, when items is present, replaces the
// contents. PUT /api/recipes/:id.
func (h *Handler) updateRecipe(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	var body updateRecipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
		apiError(c, http.StatusBadRequest, "name must not be empty")
		return
	}
	if body.Items != nil {
		if err := validateMealItems(*body.Items); err != nil {
			apiError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update recipe")
		return
	}
	defer tx.Rollback(c)

	r, err := queryOne[recipe](tx, c,
		`UPDATE recipes SET
			name = COALESCE(@name, name),
			description = COALESCE(@description, description),
			image_url = COALESCE(@imageURL, image_url),
			updated_at = now()
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{
			"id": id, "userID": userID,
			"name": body.Name, "description": body.Description, "imageURL": body.ImageURL,
		})
	if err != nil {
		notFoundOr500(c, err, "recipe not found", "failed to update recipe")
		return
	}

	if body.Items != nil {
		if _, err := tx.Exec(c, "DELETE FROM recipe_contents WHERE recipe_id = @recipeID",
			pgx.NamedArgs{"recipeID": r.ID}); err != nil {
			apiError(c, http.StatusInternalServerError, "failed to update recipe contents")
			return
		}
		if err := insertRecipeContents(c, tx, r.ID, *body.Items); err != nil {
			ingredientLinesError(c, err)
			return
		}
	}

	full, err := h.loadRecipe(c, tx, id, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to load recipe")
		return
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update recipe")
		return
	}

	c.JSON(http.StatusOK, full)
}

// deleteRecipe removes a recipe; contents cascade. Meals logged from it keep
// their own copy of the contents. DELETE /api/recipes/:id.
func (h *Handler) deleteRecipe(c *gin.Context) {
	result, err := h.db.Exec(c,
		"DELETE FROM recipes WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": c.Param("id"), "userID": c.GetInt("user_id")})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete recipe")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "recipe not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// logRecipe creates a meal from a recipe, copying its contents scaled by
// servings. POST /api/recipes/:id/log.
func (h *Handler) logRecipe(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body logRecipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.MealType = strings.ToLower(strings.TrimSpace(body.MealType))
	if !validMealTypes[body.MealType] {
		apiError(c, http.StatusBadRequest, "meal_type must be one of: breakfast, lunch, dinner, snack")
		return
	}
	servings, err := servingsOrDefault(body.Servings)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	mealDate := time.Now()
	if body.MealDate != nil {
		mealDate = *body.MealDate
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to log recipe")
		return
	}
	defer tx.Rollback(c)

	r, err := h.loadRecipe(c, tx, c.Param("id"), userID)
	if err != nil {
		notFoundOr500(c, err, "recipe not found", "failed to log recipe")
		return
	}
	if len(r.Contents) == 0 {
		apiError(c, http.StatusBadRequest, "recipe has no ingredients")
		return
	}

	m, err := queryOne[meal](tx, c,
		`INSERT INTO meals (user_id, name, description, meal_type, meal_date)
		 VALUES (@userID, @name, @description, @mealType, @mealDate)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "name": r.Name, "description": r.Description,
			"mealType": body.MealType, "mealDate": mealDate,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to log recipe")
		return
	}
	if _, err := tx.Exec(c,
		`INSERT INTO meal_contents (meal_id, ingredient_id, amount, unit)
		 SELECT @mealID, ingredient_id, amount * @servings, unit
		 FROM recipe_contents WHERE recipe_id = @recipeID
		 ORDER BY id`,
		pgx.NamedArgs{"mealID": m.ID, "servings": servings, "recipeID": r.ID}); err != nil {
		ingredientLinesError(c, err)
		return
	}

	full, err := h.loadMeal(c, tx, fmt.Sprint(m.ID), userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to load meal")
		return
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to log recipe")
		return
	}

	mealsLogged.Inc()
	h.publish(events.MealLogged, userID, gin.H{"meal_id": full.ID, "recipe_id": r.ID, "totals": full.Totals})
	c.JSON(http.StatusCreated, full)
}
