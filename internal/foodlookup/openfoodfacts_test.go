package foodlookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParsesProducts(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "greek yogurt", r.URL.Query().Get("search_terms"))
		assert.Equal(t, "5", r.URL.Query().Get("page_size"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "products": [
    {
      "code": "123",
      "product_name": "Greek Yogurt",
      "brands": "Farm Co, Other",
      "nutriments": {"energy-kcal_100g": 97, "proteins_100g": "9.0", "carbohydrates_100g": 3.6, "fat_100g": 5}
    },
    {"product_name": "", "nutriments": {"energy-kcal_100g": 10}},
    {"product_name": "No Energy", "nutriments": {"fat_100g": 1}}
  ]
}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	foods, err := c.Search(context.Background(), "greek yogurt", 5)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, Food{
		Name:        "Greek Yogurt",
		Brand:       "Farm Co",
		PortionSize: 100,
		Calories:    97,
		Protein:     9,
		Carbs:       3.6,
		Fat:         5,
		Barcode:     "123",
	}, foods[0])
}

func TestSearchNoResults(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, ts.Client()).Search(context.Background(), "asdfgh", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchRejectsOversizedResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": [], "padding": "`))
		_, _ = w.Write([]byte(strings.Repeat("x", maxResponseBytes)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, ts.Client()).Search(context.Background(), "banana", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	_, err := NewClient("http://unused.invalid", nil).Search(context.Background(), "  ", 5)
	assert.Error(t, err)
}

func TestSearchOpensBreakerAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	for i := 0; i < 6; i++ {
		_, err := c.Search(context.Background(), "banana", 1)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable), "attempt %d", i+1)
	}

	_, err := c.Search(context.Background(), "banana", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}
