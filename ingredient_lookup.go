package main

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lg/biteright-go-api/internal/foodlookup"
)

// lookupRequest is the request body for POST /api/ingredients/lookup.
type lookupRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	// Save stores the best match in the local catalog so meals can reference it.
	Save bool `json:"save"`
}

type lookupResponse struct {
	Results []foodlookup.Food `json:"results"`
	Saved   *ingredient       `json:"saved,omitempty"`
}

// lookupIngredient handles POST /api/ingredients/lookup.
// Searches OpenFoodFacts for ingredients missing from the local catalog and
// optionally saves the first match. Returns {"error": "unrecognized"} with 200
// when nothing usable is found, mirroring an empty local search.
func (h *Handler) lookupIngredient(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		apiError(c, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 || req.Limit > 25 {
		req.Limit = 10
	}

	foods, err := h.foods.Search(c.Request.Context(), req.Query, req.Limit)
	switch {
	case errors.Is(err, foodlookup.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	case errors.Is(err, foodlookup.ErrUnavailable):
		apiError(c, http.StatusServiceUnavailable, "food lookup temporarily unavailable")
		return
	case err != nil:
		log.Printf("[lookupIngredient] lookup error: %v", err)
		apiError(c, http.StatusBadGateway, "food lookup failed")
		return
	}

	resp := lookupResponse{Results: foods}
	if req.Save && len(foods) > 0 {
		saved, err := h.insertIngredient(c, ingredientFromFood(foods[0]))
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to save ingredient")
			return
		}
		resp.Saved = &saved
	}

	c.JSON(http.StatusOK, resp)
}

// ingredientFromFood maps an OpenFoodFacts product onto a catalog row.
func ingredientFromFood(f foodlookup.Food) ingredient {
	return ingredient{
		Name:        f.Name,
		Brand:       f.Brand,
		PortionSize: f.PortionSize,
		Calories:    f.Calories,
		Protein:     f.Protein,
		Carbs:       f.Carbs,
		Fat:         f.Fat,
		Source:      "openfoodfacts",
	}
}
