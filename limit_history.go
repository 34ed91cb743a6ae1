package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxExecer is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// recordLimitHistory stores limits as today's history entry. Several changes
// on one day collapse into the last one.
func recordLimitHistory(ctx context.Context, q pgxExecer, l dailyLimits) error {
	_, err := q.Exec(ctx,
		`INSERT INTO limit_history (user_id, date_changed, calorie_limit, protein_limit, carb_limit, fat_limit, water_goal)
		 VALUES (@userID, CURRENT_DATE, @calorieLimit, @proteinLimit, @carbLimit, @fatLimit, @waterGoal)
		 ON CONFLICT (user_id, date_changed) DO UPDATE SET
			calorie_limit = EXCLUDED.calorie_limit,
			protein_limit = EXCLUDED.protein_limit,
			carb_limit = EXCLUDED.carb_limit,
			fat_limit = EXCLUDED.fat_limit,
			water_goal = EXCLUDED.water_goal`,
		pgx.NamedArgs{
			"userID":       l.UserID,
			"calorieLimit": l.CalorieLimit,
			"proteinLimit": l.ProteinLimit,
			"carbLimit":    l.CarbLimit,
			"fatLimit":     l.FatLimit,
			"waterGoal":    l.WaterGoal,
		})
	return err
}

// limitSchedule resolves which limits applied on a given day. history is
// ordered by DateChanged ascending.
type limitSchedule struct {
	current dailyLimits
	history []limitHistoryEntry
}

// on returns the limits in force on day: the latest entry changed on or
// before it. Days before the first entry use the first entry; without any
// history the current limits apply.
func (s limitSchedule) on(day time.Time) dailyLimits {
	if len(s.history) == 0 {
		return s.current
	}
	entry := s.history[0]
	for _, e := range s.history[1:] {
		if e.DateChanged.After(day) {
			break
		}
		entry = e
	}

	limits := s.current
	limits.CalorieLimit = entry.CalorieLimit
	limits.ProteinLimit = entry.ProteinLimit
	limits.CarbLimit = entry.CarbLimit
	limits.FatLimit = entry.FatLimit
	limits.WaterGoal = entry.WaterGoal
	return limits
}

// loadLimitSchedule reads the current limits and every history entry up to end.
func (h *Handler) loadLimitSchedule(ctx context.Context, userID int, end string) (limitSchedule, error) {
	current, err := h.limitsOrDefault(ctx, userID)
	if err != nil {
		return limitSchedule{}, err
	}
	history, err := queryMany[limitHistoryEntry](h.db, ctx,
		`SELECT * FROM limit_history
		 WHERE user_id = @userID AND date_changed <= @end
		 ORDER BY date_changed`,
		pgx.NamedArgs{"userID": userID, "end": end})
	if err != nil {
		return limitSchedule{}, err
	}
	return limitSchedule{current: current, history: history}, nil
}

// getLimitHistory returns the user's limit changes, oldest first.
// GET /api/limit-history?start=YYYY-MM-DD&end=YYYY-MM-DD (both optional).
func (h *Handler) getLimitHistory(c *gin.Context) {
	start := c.DefaultQuery("start", "0001-01-01")
	end := c.DefaultQuery("end", "9999-12-31")
	for _, d := range []string{start, end} {
		if _, err := time.Parse(dateLayout, d); err != nil {
			apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	entries, err := queryMany[limitHistoryEntry](h.db, c,
		`SELECT * FROM limit_history
		 WHERE user_id = @userID AND date_changed BETWEEN @start AND @end
		 ORDER BY date_changed`,
		pgx.NamedArgs{"userID": c.GetInt("user_id"), "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch limit history")
		return
	}
	if entries == nil {
		entries = []limitHistoryEntry{}
	}

	c.JSON(http.StatusOK, entries)
}
