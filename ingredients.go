package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// searchIngredients returns catalog ingredients whose name contains ?name=
// (case-insensitive), at most 50.
// GET /api/ingredients?name=oat.
func (h *Handler) searchIngredients(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		apiError(c, http.StatusBadRequest, "name query param is required")
		return
	}

	items, err := queryMany[ingredient](h.db, c,
		`SELECT * FROM ingredients
		 WHERE name ILIKE '%' || @name || '%'
		 ORDER BY length(name), name
		 LIMIT 50`,
		pgx.NamedArgs{"name": name})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to search ingredients")
		return
	}
	if items == nil {
		items = []ingredient{}
	}

	c.JSON(http.StatusOK, items)
}

// createIngredient adds a user-defined ingredient to the shared catalog.
// POST /api/ingredients.
func (h *Handler) createIngredient(c *gin.Context) {
	var body ingredient
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Source = "user"
	if err := validateIngredient(body); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.insertIngredient(c, body)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create ingredient")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// validateIngredient enforces the aggregator's precondition (portion_size > 0)
// at the write boundary so stored rows can never produce Inf/NaN totals.
func validateIngredient(in ingredient) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if in.PortionSize <= 0 {
		return fmt.Errorf("portion_size must be > 0")
	}
	if in.Calories < 0 || in.Protein < 0 || in.Carbs < 0 || in.Fat < 0 {
		return fmt.Errorf("nutrition values must be >= 0")
	}
	return nil
}

func (h *Handler) insertIngredient(ctx context.Context, in ingredient) (ingredient, error) {
	return queryOne[ingredient](h.db, ctx,
		`INSERT INTO ingredients (name, brand, portion_size, calories, protein, carbs, fat, source)
		 VALUES (@name, @brand, @portionSize, @calories, @protein, @carbs, @fat, @source)
		 RETURNING *`,
		pgx.NamedArgs{
			"name": strings.TrimSpace(in.Name), "brand": strings.TrimSpace(in.Brand),
			"portionSize": in.PortionSize, "calories": in.Calories,
			"protein": in.Protein, "carbs": in.Carbs, "fat": in.Fat, "source": in.Source,
		})
}
