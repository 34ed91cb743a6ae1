package main

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/biteright-go-api/internal/events"
	"lg/biteright-go-api/internal/nutrition"
)

// getDailyLimits returns the stored limits. GET /api/daily-limits.
func (h *Handler) getDailyLimits(c *gin.Context) {
	limits, err := queryOne[dailyLimits](h.db, c,
		"SELECT * FROM daily_limits WHERE user_id = @userID",
		pgx.NamedArgs{"userID": c.GetInt("user_id")})
	if err != nil {
		notFoundOr500(c, err, "daily limits not found", "failed to fetch daily limits")
		return
	}
	c.JSON(http.StatusOK, limits)
}

// validateLimitsPatch rejects negative limits and a zero calorie limit.
func validateLimitsPatch(body patchDailyLimitsRequest) error {
	for name, v := range map[string]*int{
		"protein_limit": body.ProteinLimit,
		"carb_limit":    body.CarbLimit,
		"fat_limit":     body.FatLimit,
		"water_goal":    body.WaterGoal,
	} {
		if v != nil && *v < 0 {
			return errors.New(name + " must be >= 0")
		}
	}
	if body.CalorieLimit != nil && *body.CalorieLimit <= 0 {
		return errors.New("calorie_limit must be > 0")
	}
	return nil
}

// updateDailyLimits updates only the provided limit fields.
// PUT /api/daily-limits. Setting any macro limit by hand turns auto_limits
// off unless the body explicitly sets auto_limits too.
func (h *Handler) updateDailyLimits(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchDailyLimitsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateLimitsPatch(body); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}
	manual := false

	if body.CalorieLimit != nil {
		setClauses = append(setClauses, "calorie_limit = @calorieLimit")
		args["calorieLimit"] = *body.CalorieLimit
		manual = true
	}
	if body.ProteinLimit != nil {
		setClauses = append(setClauses, "protein_limit = @proteinLimit")
		args["proteinLimit"] = *body.ProteinLimit
		manual = true
	}
	if body.CarbLimit != nil {
		setClauses = append(setClauses, "carb_limit = @carbLimit")
		args["carbLimit"] = *body.CarbLimit
		manual = true
	}
	if body.FatLimit != nil {
		setClauses = append(setClauses, "fat_limit = @fatLimit")
		args["fatLimit"] = *body.FatLimit
		manual = true
	}
	if body.WaterGoal != nil {
		setClauses = append(setClauses, "water_goal = @waterGoal")
		args["waterGoal"] = *body.WaterGoal
	}
	if body.AutoLimits != nil {
		setClauses = append(setClauses, "auto_limits = @autoLimits")
		args["autoLimits"] = *body.AutoLimits
	} else if manual {
		setClauses = append(setClauses, "auto_limits = false")
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE daily_limits SET " +
		strings.Join(setClauses, ", ") +
		", updated_at = now() WHERE user_id = @userID RETURNING *"

	limits, err := queryOne[dailyLimits](h.db, c, query, args)
	if err != nil {
		notFoundOr500(c, err, "daily limits not found", "failed to update daily limits")
		return
	}

	// Switching auto back on recomputes immediately.
	if body.AutoLimits != nil && *body.AutoLimits {
		h.refreshAutoLimits(c, userID)
		if refreshed, err := queryOne[dailyLimits](h.db, c,
			"SELECT * FROM daily_limits WHERE user_id = @userID",
			pgx.NamedArgs{"userID": userID}); err == nil {
			limits = refreshed
		}
	} else {
		if err := recordLimitHistory(c, h.db, limits); err != nil {
			log.Printf("[updateDailyLimits] history for user %d: %v", userID, err)
		}
		h.publish(events.LimitsUpdated, userID, limits)
	}

	c.JSON(http.StatusOK, limits)
}

// recommendDailyLimits computes limits from the stored profile and goal.
// POST /api/daily-limits/recommend?apply=true also stores them.
func (h *Handler) recommendDailyLimits(c *gin.Context) {
	userID := c.GetInt("user_id")

	info, goal, err := h.loadProfile(c, h.db, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}
	targets, err := h.targetsFor(info, goal)
	if err != nil {
		if errors.Is(err, nutrition.ErrInvalidArgument) {
			apiError(c, http.StatusBadRequest, err.Error())
			return
		}
		apiError(c, http.StatusInternalServerError, "failed to compute limits")
		return
	}

	if c.Query("apply") != "true" {
		c.JSON(http.StatusOK, targets)
		return
	}

	limits, err := queryOne[dailyLimits](h.db, c,
		`UPDATE daily_limits SET
			calorie_limit = @calorieLimit, protein_limit = @proteinLimit,
			carb_limit = @carbLimit, fat_limit = @fatLimit, updated_at = now()
		 WHERE user_id = @userID RETURNING *`,
		targetArgs(userID, targets))
	if err != nil {
		notFoundOr500(c, err, "daily limits not found", "failed to apply limits")
		return
	}
	if err := recordLimitHistory(c, h.db, limits); err != nil {
		log.Printf("[recommendDailyLimits] history for user %d: %v", userID, err)
	}
	h.publish(events.LimitsUpdated, userID, limits)

	c.JSON(http.StatusOK, limits)
}
