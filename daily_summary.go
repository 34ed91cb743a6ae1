package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/biteright-go-api/internal/nutrition"
)

const dateLayout = "2006-01-02"

// maxStreakDays bounds the streak lookback query.
const maxStreakDays = 366

// maxRangeDays bounds how many days one range or average request may span.
const maxRangeDays = 366

// dateRange reads and validates ?start= and ?end=. Writes a 400 and returns
// ok=false when either is missing or malformed, or the span is too long.
func dateRange(c *gin.Context) (start, end string, ok bool) {
	start = c.Query("start")
	end = c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return "", "", false
	}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return "", "", false
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return "", "", false
	}
	if s.After(e) {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return "", "", false
	}
	if e.Sub(s) >= maxRangeDays*24*time.Hour {
		apiError(c, http.StatusBadRequest, fmt.Sprintf("range must not exceed %d days", maxRangeDays))
		return "", "", false
	}
	return start, end, true
}

/* ─── Pure summary building ──────────────────────────────────────────── */

// dayInputs is everything logged on one calendar day.
type dayInputs struct {
	contents      []datedMealContent
	mealCount     int
	waterDrank    int
	caloriesBurnt int
}

// buildDaySummary aggregates a day's meal contents per meal and compares the
// totals against limits.
func buildDaySummary(day time.Time, limits dailyLimits, in dayInputs) (daySummary, error) {
	byMeal := map[int][]mealContent{}
	order := []int{}
	for _, dc := range in.contents {
		if _, seen := byMeal[dc.MealID]; !seen {
			order = append(order, dc.MealID)
		}
		byMeal[dc.MealID] = append(byMeal[dc.MealID], dc.mealContent)
	}
	groups := make([][]nutrition.ConsumedItem, 0, len(order))
	for _, id := range order {
		items, err := consumedItems(byMeal[id])
		if err != nil {
			return daySummary{}, err
		}
		groups = append(groups, items)
	}
	totals, err := nutrition.AggregateMany(groups)
	if err != nil {
		return daySummary{}, err
	}

	rounded := toNutritionTotals(totals)
	net := int(math.Round(totals.Calories)) - in.caloriesBurnt
	return daySummary{
		Date:          DateOnly{day},
		Limits:        limits,
		Totals:        rounded,
		WaterDrank:    in.waterDrank,
		CaloriesBurnt: in.caloriesBurnt,
		NetCalories:   net,
		CaloriesLeft:  limits.CalorieLimit - net,
		Progress:      nutrition.Progress(limitsTargets(limits), totals.Rounded()),
		MealCount:     in.mealCount,
		HasData:       in.mealCount > 0 || in.waterDrank > 0 || in.caloriesBurnt > 0,
	}, nil
}

// summarizeDays builds one summary per day in [start, end], each against the
// limits in force that day. With gapFill false, days without any logged data
// are omitted.
func summarizeDays(start, end time.Time, limits limitSchedule, byDay map[string]dayInputs, gapFill bool) ([]daySummary, error) {
	days := []daySummary{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		in, ok := byDay[d.Format(dateLayout)]
		if !ok && !gapFill {
			continue
		}
		s, err := buildDaySummary(d, limits.on(d), in)
		if err != nil {
			return nil, err
		}
		if !s.HasData && !gapFill {
			continue
		}
		days = append(days, s)
	}
	return days, nil
}

// rangeStats averages over tracked days only.
func rangeStats(days []daySummary) progressStats {
	var stats progressStats
	var calories, protein, burnt, water float64
	for _, d := range days {
		if !d.HasData {
			continue
		}
		stats.DaysTracked++
		if d.NetCalories <= d.Limits.CalorieLimit {
			stats.DaysOnBudget++
		}
		calories += d.Totals.Calories
		protein += d.Totals.Protein
		burnt += float64(d.CaloriesBurnt)
		water += float64(d.WaterDrank)
		stats.TotalCaloriesLeft += d.CaloriesLeft
	}
	if stats.DaysTracked > 0 {
		n := float64(stats.DaysTracked)
		stats.AvgCalories = math.Round(calories/n*10) / 10
		stats.AvgProtein = math.Round(protein/n*10) / 10
		stats.AvgCaloriesBurnt = math.Round(burnt/n*10) / 10
		stats.AvgWaterDrank = math.Round(water/n*10) / 10
	}
	return stats
}

// streakLength counts consecutive logged days ending today. An empty today
// doesn't break the streak; counting then starts from yesterday.
func streakLength(logged map[string]bool, today time.Time) int {
	d := today
	if !logged[d.Format(dateLayout)] {
		d = d.AddDate(0, 0, -1)
	}
	n := 0
	for logged[d.Format(dateLayout)] {
		n++
		d = d.AddDate(0, 0, -1)
	}
	return n
}

/* ─── Loading ────────────────────────────────────────────────────────── */

// limitsOrDefault returns the stored limits, or the 2000 kcal defaults for
// users without a daily_limits row.
func (h *Handler) limitsOrDefault(ctx context.Context, userID int) (dailyLimits, error) {
	limits, err := queryOne[dailyLimits](h.db, ctx,
		"SELECT * FROM daily_limits WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		t := nutrition.DefaultTargets(0)
		return dailyLimits{
			UserID:       userID,
			CalorieLimit: t.CalorieLimit,
			ProteinLimit: t.ProteinLimit,
			CarbLimit:    t.CarbLimit,
			FatLimit:     t.FatLimit,
			WaterGoal:    defaultWaterGoal,
			AutoLimits:   true,
		}, nil
	}
	return limits, err
}

// loadDays runs the per-day queries for [start, end] and indexes them by date.
func (h *Handler) loadDays(ctx context.Context, userID int, start, end string) (map[string]dayInputs, error) {
	args := pgx.NamedArgs{"userID": userID, "start": start, "end": end}

	contents, err := queryMany[datedMealContent](h.db, ctx,
		`SELECT m.meal_date::date AS day, `+mealContentColumns+`
		 FROM meal_contents mc
		 JOIN meals m ON m.id = mc.meal_id
		 JOIN ingredients i ON i.id = mc.ingredient_id
		 WHERE m.user_id = @userID AND m.meal_date::date BETWEEN @start AND @end
		 ORDER BY m.meal_date, mc.id`, args)
	if err != nil {
		return nil, err
	}
	meals, err := queryMany[dayActivityRow](h.db, ctx,
		`SELECT meal_date::date AS day, COUNT(*)::int AS total FROM meals
		 WHERE user_id = @userID AND meal_date::date BETWEEN @start AND @end
		 GROUP BY 1`, args)
	if err != nil {
		return nil, err
	}
	water, err := queryMany[dayActivityRow](h.db, ctx,
		`SELECT intake_date::date AS day, SUM(water_amount)::int AS total FROM water_intake
		 WHERE user_id = @userID AND intake_date::date BETWEEN @start AND @end
		 GROUP BY 1`, args)
	if err != nil {
		return nil, err
	}
	burnt, err := queryMany[dayActivityRow](h.db, ctx,
		`SELECT activity_date::date AS day, SUM(calories_burnt)::int AS total FROM user_exercises
		 WHERE user_id = @userID AND activity_date::date BETWEEN @start AND @end
		 GROUP BY 1`, args)
	if err != nil {
		return nil, err
	}

	byDay := map[string]dayInputs{}
	key := func(d DateOnly) string { return d.Format(dateLayout) }
	for _, dc := range contents {
		in := byDay[key(dc.Day)]
		in.contents = append(in.contents, dc)
		byDay[key(dc.Day)] = in
	}
	for _, r := range meals {
		in := byDay[key(r.Day)]
		in.mealCount = r.Total
		byDay[key(r.Day)] = in
	}
	for _, r := range water {
		in := byDay[key(r.Day)]
		in.waterDrank = r.Total
		byDay[key(r.Day)] = in
	}
	for _, r := range burnt {
		in := byDay[key(r.Day)]
		in.caloriesBurnt = r.Total
		byDay[key(r.Day)] = in
	}
	return byDay, nil
}

// summarize loads and builds summaries for [start, end].
func (h *Handler) summarize(ctx context.Context, userID int, start, end string, gapFill bool) ([]daySummary, error) {
	limits, err := h.loadLimitSchedule(ctx, userID, end)
	if err != nil {
		return nil, err
	}
	byDay, err := h.loadDays(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	s, _ := time.Parse(dateLayout, start)
	e, _ := time.Parse(dateLayout, end)
	return summarizeDays(s, e, limits, byDay, gapFill)
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// getDailySummary returns totals, water, exercise and progress for one day.
// GET /api/daily-summary?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getDailySummary(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format(dateLayout))

	// Validate date format before querying: an invalid value silently returns no rows.
	if _, err := time.Parse(dateLayout, date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	days, err := h.summarize(c, c.GetInt("user_id"), date, date, true)
	if err != nil || len(days) != 1 {
		apiError(c, http.StatusInternalServerError, "failed to build daily summary")
		return
	}

	c.JSON(http.StatusOK, days[0])
}

// getSummaryRange returns per-day summaries and aggregate stats for an arbitrary date range.
// GET /api/daily-summary/range?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Only days with logged data are returned (no gap-filling).
func (h *Handler) getSummaryRange(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	days, err := h.summarize(c, c.GetInt("user_id"), start, end, false)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress data")
		return
	}

	c.JSON(http.StatusOK, rangeSummaryResponse{Days: days, Stats: rangeStats(days)})
}

// getWeekSummary returns per-day summaries for the Mon–Sun week containing
// week_start. Days with nothing logged are included with has_data=false.
// GET /api/daily-summary/week?week_start=YYYY-MM-DD (defaults to current week).
func (h *Handler) getWeekSummary(c *gin.Context) {
	// Parse week_start; default to the current Monday.
	var weekStart time.Time
	if s := c.Query("week_start"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
			return
		}
		weekStart = mondayOf(t)
	} else {
		weekStart = currentMonday()
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	days, err := h.summarize(c, c.GetInt("user_id"),
		weekStart.Format(dateLayout), weekEnd.Format(dateLayout), true)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch week data")
		return
	}

	c.JSON(http.StatusOK, days)
}

// getStreak returns how many consecutive days ending today have a meal logged.
// GET /api/daily-summary/streak.
func (h *Handler) getStreak(c *gin.Context) {
	today := time.Now()
	rows, err := queryMany[dayActivityRow](h.db, c,
		`SELECT meal_date::date AS day, COUNT(*)::int AS total FROM meals
		 WHERE user_id = @userID AND meal_date::date BETWEEN @since AND @today
		 GROUP BY 1`,
		pgx.NamedArgs{
			"userID": c.GetInt("user_id"),
			"since":  today.AddDate(0, 0, -maxStreakDays).Format(dateLayout),
			"today":  today.Format(dateLayout),
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch streak")
		return
	}

	logged := make(map[string]bool, len(rows))
	for _, r := range rows {
		logged[r.Day.Format(dateLayout)] = true
	}

	c.JSON(http.StatusOK, gin.H{
		"streak":       streakLength(logged, today),
		"logged_today": logged[today.Format(dateLayout)],
	})
}

// getAverages returns average daily intake over days with data.
// GET /api/daily-summary/average?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *Handler) getAverages(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	days, err := h.summarize(c, c.GetInt("user_id"), start, end, false)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch averages")
		return
	}
	stats := rangeStats(days)

	c.JSON(http.StatusOK, gin.H{
		"start":              start,
		"end":                end,
		"days_tracked":       stats.DaysTracked,
		"avg_calories":       stats.AvgCalories,
		"avg_protein":        stats.AvgProtein,
		"avg_calories_burnt": stats.AvgCaloriesBurnt,
		"avg_water_drank":    stats.AvgWaterDrank,
	})
}
