package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lg/biteright-go-api/internal/foodlookup"
)

// fakeFoods is a foodSearcher returning canned results.
type fakeFoods struct {
	foods     []foodlookup.Food
	err       error
	lastQuery string
	lastLimit int
}

func (f *fakeFoods) Search(_ context.Context, query string, limit int) ([]foodlookup.Food, error) {
	f.lastQuery, f.lastLimit = query, limit
	return f.foods, f.err
}

// setupLookupTest creates a Gin engine with a fake food searcher. No DB needed
// as long as save is false.
func setupLookupTest(foods *fakeFoods) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := Handler{foods: foods}
	router := gin.New()
	// Skip auth middleware for tests: set a dummy user_id
	router.POST("/api/ingredients/lookup", func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Next()
	}, h.lookupIngredient)
	return router
}

// doLookupRequest sends a POST to the lookup endpoint with the given body.
func doLookupRequest(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/ingredients/lookup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLookup_Success(t *testing.T) {
	foods := &fakeFoods{foods: []foodlookup.Food{
		{Name: "Rolled Oats", Brand: "Quaker", PortionSize: 100, Calories: 379, Protein: 13.2, Carbs: 67.7, Fat: 6.5},
	}}
	router := setupLookupTest(foods)

	w := doLookupRequest(router, `{"query":"oats","limit":5}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp lookupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Rolled Oats", resp.Results[0].Name)
	assert.Nil(t, resp.Saved)
	assert.Equal(t, "oats", foods.lastQuery)
	assert.Equal(t, 5, foods.lastLimit)
}

func TestLookup_LimitDefaultsAndCaps(t *testing.T) {
	foods := &fakeFoods{foods: []foodlookup.Food{{Name: "x", PortionSize: 100}}}
	router := setupLookupTest(foods)

	doLookupRequest(router, `{"query":"x"}`)
	assert.Equal(t, 10, foods.lastLimit)

	doLookupRequest(router, `{"query":"x","limit":500}`)
	assert.Equal(t, 10, foods.lastLimit)
}

func TestLookup_MissingQuery(t *testing.T) {
	router := setupLookupTest(&fakeFoods{})

	w := doLookupRequest(router, `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doLookupRequest(router, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLookup_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", foodlookup.ErrNotFound, http.StatusOK, `{"error":"unrecognized"}`},
		{"breaker open", foodlookup.ErrUnavailable, http.StatusServiceUnavailable, `{"error":"food lookup temporarily unavailable"}`},
		{"upstream failure", errors.New("boom"), http.StatusBadGateway, `{"error":"food lookup failed"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupLookupTest(&fakeFoods{err: tc.err})
			w := doLookupRequest(router, `{"query":"mystery"}`)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestIngredientFromFood(t *testing.T) {
	in := ingredientFromFood(foodlookup.Food{Name: "Milk", Brand: "Arla", PortionSize: 100, Calories: 64, Protein: 3.4, Carbs: 4.8, Fat: 3.6})

	assert.Equal(t, "openfoodfacts", in.Source)
	assert.Equal(t, 100.0, in.PortionSize)
	assert.NoError(t, validateIngredient(in))
}

func TestValidateIngredient(t *testing.T) {
	ok := ingredient{Name: "Rice", PortionSize: 100, Calories: 130}
	assert.NoError(t, validateIngredient(ok))

	noName := ok
	noName.Name = " "
	assert.Error(t, validateIngredient(noName))

	zeroPortion := ok
	zeroPortion.PortionSize = 0
	assert.Error(t, validateIngredient(zeroPortion))

	negative := ok
	negative.Fat = -1
	assert.Error(t, validateIngredient(negative))
}
