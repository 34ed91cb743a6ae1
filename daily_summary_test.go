package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

func testLimits() dailyLimits {
	return dailyLimits{CalorieLimit: 2000, ProteinLimit: 100, CarbLimit: 225, FatLimit: 67, WaterGoal: 2500}
}

// oats is 100 g reference: 400 kcal, 10 P, 60 C, 8 F.
func oats(mealID int, amount float64, unit string) datedMealContent {
	return datedMealContent{mealContent: mealContent{
		MealID: mealID, IngredientID: 1, Amount: amount, Unit: unit,
		PortionSize: 100, Calories: 400, Protein: 10, Carbs: 60, Fat: 8,
	}}
}

func TestBuildDaySummary(t *testing.T) {
	in := dayInputs{
		contents: []datedMealContent{
			oats(1, 50, "g"),      // 200 kcal
			oats(2, 1, "portion"), // 400 kcal
			oats(2, 25, "grams"),  // 100 kcal
		},
		mealCount:     2,
		waterDrank:    1500,
		caloriesBurnt: 300,
	}

	s, err := buildDaySummary(day("2026-03-10"), testLimits(), in)
	require.NoError(t, err)

	assert.Equal(t, nutritionTotals{Calories: 700, Protein: 18, Carbs: 105, Fat: 14}, s.Totals)
	assert.Equal(t, 400, s.NetCalories)
	assert.Equal(t, 1600, s.CaloriesLeft)
	assert.Equal(t, 1500, s.WaterDrank)
	assert.Equal(t, 2, s.MealCount)
	assert.True(t, s.HasData)
	assert.Equal(t, 35.0, s.Progress.Calories.Percent)
	assert.Equal(t, 82.0, s.Progress.Protein.Remaining)
	assert.Equal(t, "2026-03-10", s.Date.Format(dateLayout))
}

func TestBuildDaySummary_Empty(t *testing.T) {
	s, err := buildDaySummary(day("2026-03-10"), testLimits(), dayInputs{})
	require.NoError(t, err)
	assert.False(t, s.HasData)
	assert.Equal(t, 2000, s.CaloriesLeft)
	assert.Zero(t, s.Totals.Calories)
}

func TestBuildDaySummary_RejectsUnknownUnit(t *testing.T) {
	_, err := buildDaySummary(day("2026-03-10"), testLimits(), dayInputs{
		contents: []datedMealContent{oats(1, 10, "cup")},
	})
	assert.Error(t, err)
}

func TestSummarizeDays_GapFill(t *testing.T) {
	byDay := map[string]dayInputs{
		"2026-03-10": {contents: []datedMealContent{oats(1, 100, "g")}, mealCount: 1},
	}

	week, err := summarizeDays(day("2026-03-09"), day("2026-03-15"), limitSchedule{current: testLimits()}, byDay, true)
	require.NoError(t, err)
	require.Len(t, week, 7)
	assert.False(t, week[0].HasData)
	assert.True(t, week[1].HasData)
	assert.Equal(t, 400.0, week[1].Totals.Calories)
	assert.Equal(t, "2026-03-15", week[6].Date.Format(dateLayout))

	tracked, err := summarizeDays(day("2026-03-09"), day("2026-03-15"), limitSchedule{current: testLimits()}, byDay, false)
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Equal(t, "2026-03-10", tracked[0].Date.Format(dateLayout))
}

func historyEntry(date string, calories int) limitHistoryEntry {
	return limitHistoryEntry{DateChanged: DateOnly{day(date)}, CalorieLimit: calories, ProteinLimit: 90, CarbLimit: 200, FatLimit: 60, WaterGoal: 2000}
}

func TestLimitScheduleOn(t *testing.T) {
	schedule := limitSchedule{
		current: testLimits(),
		history: []limitHistoryEntry{
			historyEntry("2026-03-01", 1800),
			historyEntry("2026-03-10", 1600),
			historyEntry("2026-03-20", 2000),
		},
	}

	assert.Equal(t, 1800, schedule.on(day("2026-02-15")).CalorieLimit)
	assert.Equal(t, 1800, schedule.on(day("2026-03-01")).CalorieLimit)
	assert.Equal(t, 1800, schedule.on(day("2026-03-09")).CalorieLimit)
	assert.Equal(t, 1600, schedule.on(day("2026-03-10")).CalorieLimit)
	assert.Equal(t, 1600, schedule.on(day("2026-03-19")).CalorieLimit)
	assert.Equal(t, 2000, schedule.on(day("2026-04-01")).CalorieLimit)

	got := schedule.on(day("2026-03-12"))
	assert.Equal(t, 90, got.ProteinLimit)
	assert.Equal(t, 2000, got.WaterGoal)
	assert.True(t, got.AutoLimits)

	assert.Equal(t, testLimits(), limitSchedule{current: testLimits()}.on(day("2026-03-12")))
}

func TestSummarizeDays_UsesLimitsInForceEachDay(t *testing.T) {
	byDay := map[string]dayInputs{
		"2026-03-09": {contents: []datedMealContent{oats(1, 100, "g")}, mealCount: 1},
		"2026-03-11": {contents: []datedMealContent{oats(2, 100, "g")}, mealCount: 1},
	}
	schedule := limitSchedule{
		current: testLimits(),
		history: []limitHistoryEntry{
			historyEntry("2026-03-01", 1800),
			historyEntry("2026-03-10", 1600),
		},
	}

	days, err := summarizeDays(day("2026-03-09"), day("2026-03-11"), schedule, byDay, false)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 1800, days[0].Limits.CalorieLimit)
	assert.Equal(t, 1400, days[0].CaloriesLeft)
	assert.Equal(t, 1600, days[1].Limits.CalorieLimit)
	assert.Equal(t, 1200, days[1].CaloriesLeft)
	assert.Equal(t, 25.0, days[1].Progress.Calories.Percent)
}

func TestRangeStats(t *testing.T) {
	days := []daySummary{
		{HasData: true, Limits: testLimits(), Totals: nutritionTotals{Calories: 1800, Protein: 90}, NetCalories: 1800, CaloriesLeft: 200, WaterDrank: 2000},
		{HasData: true, Limits: testLimits(), Totals: nutritionTotals{Calories: 2300, Protein: 110}, NetCalories: 2100, CaloriesLeft: -100, CaloriesBurnt: 200},
		{HasData: false, Limits: testLimits()},
	}

	stats := rangeStats(days)

	assert.Equal(t, 2, stats.DaysTracked)
	assert.Equal(t, 1, stats.DaysOnBudget)
	assert.Equal(t, 2050.0, stats.AvgCalories)
	assert.Equal(t, 100.0, stats.AvgProtein)
	assert.Equal(t, 100.0, stats.AvgCaloriesBurnt)
	assert.Equal(t, 1000.0, stats.AvgWaterDrank)
	assert.Equal(t, 100, stats.TotalCaloriesLeft)
}

func TestRangeStats_NoData(t *testing.T) {
	assert.Equal(t, progressStats{}, rangeStats(nil))
}

func TestStreakLength(t *testing.T) {
	today := day("2026-03-10")
	logged := map[string]bool{
		"2026-03-10": true,
		"2026-03-09": true,
		"2026-03-08": true,
		"2026-03-06": true,
	}
	assert.Equal(t, 3, streakLength(logged, today))

	// Nothing logged yet today: the run ending yesterday still counts.
	delete(logged, "2026-03-10")
	assert.Equal(t, 2, streakLength(logged, today))

	assert.Equal(t, 0, streakLength(map[string]bool{"2026-03-07": true}, today))
	assert.Equal(t, 0, streakLength(map[string]bool{}, today))
}

func rangeContext(query string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/daily-summary/range?"+query, nil)
	return c, w
}

func TestDateRange(t *testing.T) {
	c, _ := rangeContext("start=2026-01-01&end=2026-12-31")
	start, end, ok := dateRange(c)
	require.True(t, ok)
	assert.Equal(t, "2026-01-01", start)
	assert.Equal(t, "2026-12-31", end)

	// 2028 is a leap year: 366 days inclusive is the longest allowed span.
	c, _ = rangeContext("start=2028-01-01&end=2028-12-31")
	_, _, ok = dateRange(c)
	assert.True(t, ok)
}

func TestDateRange_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing end":   "start=2026-01-01",
		"bad start":     "start=01/01/2026&end=2026-01-02",
		"reversed":      "start=2026-02-01&end=2026-01-01",
		"too long":      "start=2026-01-01&end=2027-01-02",
		"whole history": "start=0001-01-01&end=9999-12-31",
	}
	for name, query := range cases {
		c, w := rangeContext(query)
		_, _, ok := dateRange(c)
		assert.False(t, ok, name)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}
