package main

import (
	"context"
	"errors"
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

// defaultWaterGoal is the daily water target (ml) for users who never set one.
const defaultWaterGoal = 2500

// statsFromProfile converts a user_info row into calculator input.
// Returns ok=false when any body stat is still missing.
func statsFromProfile(info userInfo) (nutrition.ProfileStats, bool) {
	if info.Age == nil || info.WeightKG == nil || info.HeightCM == nil {
		return nutrition.ProfileStats{}, false
	}
	return nutrition.ProfileStats{
		WeightKg:      *info.WeightKG,
		HeightCm:      *info.HeightCM,
		AgeYears:      *info.Age,
		ActivityLevel: nutrition.ActivityLevel(info.Lifestyle),
	}, true
}

// goalFromRow converts a user_goals row into calculator input. An empty
// goal_type (no row yet) means maintain.
func goalFromRow(g userGoal) nutrition.GoalInput {
	in := nutrition.GoalInput{Type: nutrition.GoalType(g.GoalType), GoalWeightKg: g.GoalWeightKG}
	if in.Type == "" {
		in.Type = nutrition.Maintain
	}
	if g.GoalDate != nil && !g.GoalDate.IsZero() {
		t := g.GoalDate.Time
		in.GoalDate = &t
	}
	return in
}

// parseGoalDate parses an optional YYYY-MM-DD string.
func parseGoalDate(s *string) (*DateOnly, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(*s))
	if err != nil {
		return nil, fmt.Errorf("goal_date must be YYYY-MM-DD")
	}
	return &DateOnly{t}, nil
}

// targetsFor computes limits for a profile and goal, falling back to the
// 2000 kcal defaults when the profile has no body stats yet.
func (h *Handler) targetsFor(info userInfo, goal userGoal) (nutrition.Targets, error) {
	stats, ok := statsFromProfile(info)
	if !ok {
		var weight float64
		if info.WeightKG != nil {
			weight = *info.WeightKG
		}
		return nutrition.DefaultTargets(weight), nil
	}
	g := goalFromRow(goal)
	t, err := h.calc.ComputeTargets(stats, g)
	if err != nil {
		return nutrition.Targets{}, err
	}
	targetsComputed.WithLabelValues(string(g.Type)).Inc()
	return t, nil
}

// validateProfile rejects values the calculator can't use before they are stored.
func validateProfile(age *int, weightKG, heightCM *float64, lifestyle string) error {
	if age != nil && (*age <= 0 || *age > 130) {
		return fmt.Errorf("age must be between 1 and 130")
	}
	if weightKG != nil && (*weightKG <= 0 || math.IsNaN(*weightKG)) {
		return fmt.Errorf("weight_kg must be > 0")
	}
	if heightCM != nil && (*heightCM <= 0 || math.IsNaN(*heightCM)) {
		return fmt.Errorf("height_cm must be > 0")
	}
	if lifestyle != "" && !nutrition.ValidActivityLevel(nutrition.ActivityLevel(lifestyle)) {
		return fmt.Errorf("lifestyle must be one of: sedentary, light, moderate, active, athlete")
	}
	return nil
}

func validateGoal(goalType string, goalWeightKG *float64) error {
	if goalType != "" && !nutrition.ValidGoalType(nutrition.GoalType(goalType)) {
		return fmt.Errorf("goal_type must be one of: lose, maintain, gain")
	}
	if goalWeightKG != nil && (*goalWeightKG <= 0 || math.IsNaN(*goalWeightKG)) {
		return fmt.Errorf("goal_weight_kg must be > 0")
	}
	return nil
}

// targetsResponse is the body of POST /api/targets/calculate.
type targetsResponse struct {
	nutrition.Targets
	BMR       int     `json:"bmr,omitempty"`
	TDEE      int     `json:"tdee,omitempty"`
	BMI       float64 `json:"bmi,omitempty"`
	Defaulted bool    `json:"defaulted"`
}

// calculateTargets runs the target calculator over the request body without
// touching the database. Used by the onboarding flow to preview limits.
// POST /api/targets/calculate (public).
func (h *Handler) calculateTargets(c *gin.Context) {
	var body onboardingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	info, goal, err := profileFromOnboarding(body)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	targets, err := h.targetsFor(info, goal)
	if err != nil {
		if errors.Is(err, nutrition.ErrInvalidArgument) {
			apiError(c, http.StatusBadRequest, err.Error())
			return
		}
		apiError(c, http.StatusInternalServerError, "failed to compute targets")
		return
	}

	resp := targetsResponse{Targets: targets}
	if stats, ok := statsFromProfile(info); ok {
		resp.BMR = int(math.Round(nutrition.BMR(stats)))
		resp.TDEE = int(math.Round(nutrition.TDEE(stats)))
		resp.BMI = nutrition.BMI(stats.WeightKg, stats.HeightCm)
	} else {
		resp.Defaulted = true
	}

	c.JSON(http.StatusOK, resp)
}

// profileFromOnboarding validates an onboarding body and converts it into
// the rows register would store.
func profileFromOnboarding(body onboardingRequest) (userInfo, userGoal, error) {
	if body.Lifestyle == "" {
		body.Lifestyle = string(nutrition.Moderate)
	}
	if body.GoalType == "" {
		body.GoalType = string(nutrition.Maintain)
	}
	if err := validateProfile(body.Age, body.WeightKG, body.HeightCM, body.Lifestyle); err != nil {
		return userInfo{}, userGoal{}, err
	}
	if err := validateGoal(body.GoalType, body.GoalWeightKG); err != nil {
		return userInfo{}, userGoal{}, err
	}
	goalDate, err := parseGoalDate(body.GoalDate)
	if err != nil {
		return userInfo{}, userGoal{}, err
	}

	info := userInfo{
		Name:      strings.TrimSpace(body.Name),
		Surname:   strings.TrimSpace(body.Surname),
		Age:       body.Age,
		WeightKG:  body.WeightKG,
		HeightCM:  body.HeightCM,
		Lifestyle: body.Lifestyle,
	}
	info.BMI = bmiFor(info)
	goal := userGoal{GoalType: body.GoalType, GoalWeightKG: body.GoalWeightKG, GoalDate: goalDate}
	return info, goal, nil
}

// bmiFor returns the BMI to store for a profile, or nil when it can't be computed.
func bmiFor(info userInfo) *float64 {
	if info.WeightKG == nil || info.HeightCM == nil {
		return nil
	}
	bmi := nutrition.BMI(*info.WeightKG, *info.HeightCM)
	if bmi == 0 {
		return nil
	}
	return &bmi
}

// loadProfile reads a user's profile and goal. Missing rows yield zero values
// so callers fall back to defaults.
func (h *Handler) loadProfile(ctx context.Context, q pgxQuerier, userID int) (userInfo, userGoal, error) {
	info, err := queryOne[userInfo](q, ctx,
		"SELECT * FROM user_info WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return userInfo{}, userGoal{}, err
	}
	goal, err := queryOne[userGoal](q, ctx,
		"SELECT * FROM user_goals WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return userInfo{}, userGoal{}, err
	}
	return info, goal, nil
}

// refreshAutoLimits recomputes and stores daily limits when the user has
// auto_limits on. Called after any profile, goal or weight change; failures
// are logged and never fail the caller's request.
func (h *Handler) refreshAutoLimits(ctx context.Context, userID int) {
	limits, err := queryOne[dailyLimits](h.db, ctx,
		"SELECT * FROM daily_limits WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil || !limits.AutoLimits {
		return
	}
	info, goal, err := h.loadProfile(ctx, h.db, userID)
	if err != nil {
		log.Printf("[refreshAutoLimits] profile for user %d: %v", userID, err)
		return
	}
	targets, err := h.targetsFor(info, goal)
	if err != nil {
		log.Printf("[refreshAutoLimits] compute for user %d: %v", userID, err)
		return
	}
	updated, err := queryOne[dailyLimits](h.db, ctx,
		`UPDATE daily_limits SET
			calorie_limit = @calorieLimit, protein_limit = @proteinLimit,
			carb_limit = @carbLimit, fat_limit = @fatLimit, updated_at = now()
		 WHERE user_id = @userID RETURNING *`,
		targetArgs(userID, targets))
	if err != nil {
		log.Printf("[refreshAutoLimits] update for user %d: %v", userID, err)
		return
	}
	if err := recordLimitHistory(ctx, h.db, updated); err != nil {
		log.Printf("[refreshAutoLimits] history for user %d: %v", userID, err)
	}
	h.publish(events.LimitsUpdated, userID, updated)
}

func targetArgs(userID int, t nutrition.Targets) pgx.NamedArgs {
	return pgx.NamedArgs{
		"userID":       userID,
		"calorieLimit": t.CalorieLimit,
		"proteinLimit": t.ProteinLimit,
		"carbLimit":    t.CarbLimit,
		"fatLimit":     t.FatLimit,
	}
}

// limitsTargets extracts the calculator view of a daily_limits row.
func limitsTargets(l dailyLimits) nutrition.Targets {
	return nutrition.Targets{
		CalorieLimit: l.CalorieLimit,
		ProteinLimit: l.ProteinLimit,
		CarbLimit:    l.CarbLimit,
		FatLimit:     l.FatLimit,
	}
}

// currentMonday returns the Monday of the current week at midnight UTC.
// Uses AddDate to safely handle month/year boundaries; direct day subtraction
// can produce day=0 or negative, which time.Date normalizes but is confusing.
func currentMonday() time.Time {
	return mondayOf(time.Now().UTC())
}

func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	y, m, d := t.AddDate(0, 0, -(weekday - 1)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
