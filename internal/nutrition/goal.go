// Package nutrition holds the calorie/macro target calculator and the
// meal nutrient aggregator. Everything here is pure: no I/O, no shared state.
package nutrition

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidArgument is returned when an input violates a precondition that
// would otherwise leak NaN or Infinity into a result.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	// CaloriesPerKgFat is the energy content assumed for 1 kg of body fat.
	CaloriesPerKgFat = 7700
	// MinCaloriesSafeFloor is the lowest daily calorie limit ever recommended.
	MinCaloriesSafeFloor = 1200
	// MaxDailySurplus caps the daily adjustment above TDEE.
	MaxDailySurplus = 2000
	// DefaultCalorieLimit is what callers fall back to when body stats are missing.
	DefaultCalorieLimit = 2000

	fixedLossAdjustment = -500
	fixedGainAdjustment = 300

	proteinPerKg     = 1.6
	carbCalorieShare = 0.45
	fatCalorieShare  = 0.30
	kcalPerGramCarb  = 4
	kcalPerGramFat   = 9
)

type ActivityLevel string

const (
	Sedentary ActivityLevel = "sedentary"
	Light     ActivityLevel = "light"
	Moderate  ActivityLevel = "moderate"
	Active    ActivityLevel = "active"
	Athlete   ActivityLevel = "athlete"
)

// activityMultipliers maps activity levels to their TDEE multiplier. Also the
// source of truth for ValidActivityLevel.
var activityMultipliers = map[ActivityLevel]float64{
	Sedentary: 1.2,
	Light:     1.375,
	Moderate:  1.55,
	Active:    1.725,
	Athlete:   1.9,
}

type GoalType string

const (
	Lose     GoalType = "lose"
	Maintain GoalType = "maintain"
	Gain     GoalType = "gain"
)

// ProfileStats is the body snapshot the calculator works from.
type ProfileStats struct {
	WeightKg      float64
	HeightCm      float64
	AgeYears      int
	ActivityLevel ActivityLevel
}

// GoalInput describes what the user wants. GoalWeightKg and GoalDate are only
// used when both are set.
type GoalInput struct {
	Type         GoalType
	GoalWeightKg *float64
	GoalDate     *time.Time
}

// Targets is the recommended daily intake.
type Targets struct {
	CalorieLimit int `json:"calorie_limit"`
	ProteinLimit int `json:"protein_limit"`
	CarbLimit    int `json:"carb_limit"`
	FatLimit     int `json:"fat_limit"`
}

// ValidActivityLevel reports whether level is one of the known levels.
func ValidActivityLevel(level ActivityLevel) bool {
	_, ok := activityMultipliers[level]
	return ok
}

// ValidGoalType reports whether g is lose, maintain or gain.
func ValidGoalType(g GoalType) bool {
	return g == Lose || g == Maintain || g == Gain
}

// ActivityMultiplier returns the TDEE multiplier for level. Unknown levels are
// treated as moderate.
func ActivityMultiplier(level ActivityLevel) float64 {
	if m, ok := activityMultipliers[level]; ok {
		return m
	}
	return activityMultipliers[Moderate]
}

// BMR estimates basal metabolic rate with the Mifflin-St Jeor formula, using
// the +5 constant for everyone.
func BMR(s ProfileStats) float64 {
	return 10*s.WeightKg + 6.25*s.HeightCm - 5*float64(s.AgeYears) + 5
}

// TDEE is BMR scaled by the activity multiplier.
func TDEE(s ProfileStats) float64 {
	return BMR(s) * ActivityMultiplier(s.ActivityLevel)
}

// Validate checks the preconditions of the calculator.
func (s ProfileStats) Validate() error {
	if math.IsNaN(s.WeightKg) || s.WeightKg <= 0 {
		return fmt.Errorf("weight must be > 0: %w", ErrInvalidArgument)
	}
	if math.IsNaN(s.HeightCm) || s.HeightCm <= 0 {
		return fmt.Errorf("height must be > 0: %w", ErrInvalidArgument)
	}
	if s.AgeYears <= 0 {
		return fmt.Errorf("age must be > 0: %w", ErrInvalidArgument)
	}
	return nil
}

// Calculator computes targets relative to Now. The zero value uses the wall clock.
type Calculator struct {
	Now func() time.Time
}

func (c Calculator) today() time.Time {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// ComputeTargets derives the daily calorie limit and macro split from stats
// and goal. The 1200 kcal floor and the +2000 kcal surplus cap apply to every
// goal type.
func (c Calculator) ComputeTargets(stats ProfileStats, goal GoalInput) (Targets, error) {
	if err := stats.Validate(); err != nil {
		return Targets{}, err
	}
	if goal.GoalWeightKg != nil && (math.IsNaN(*goal.GoalWeightKg) || *goal.GoalWeightKg <= 0) {
		return Targets{}, fmt.Errorf("goal weight must be > 0: %w", ErrInvalidArgument)
	}

	tdee := TDEE(stats)
	adjustment := c.dailyAdjustment(stats, goal)

	target := tdee + adjustment
	if adjustment > MaxDailySurplus {
		target = tdee + MaxDailySurplus
	}
	if target < MinCaloriesSafeFloor {
		target = MinCaloriesSafeFloor
	}

	return MacroSplit(int(math.Round(target)), stats.WeightKg), nil
}

// dailyAdjustment is the kcal/day offset from TDEE implied by the goal.
func (c Calculator) dailyAdjustment(stats ProfileStats, goal GoalInput) float64 {
	if goal.Type == Maintain {
		return 0
	}
	if goal.GoalWeightKg != nil && goal.GoalDate != nil {
		totalChange := (*goal.GoalWeightKg - stats.WeightKg) * CaloriesPerKgFat
		return totalChange / float64(DaysRemaining(c.today(), *goal.GoalDate))
	}
	switch goal.Type {
	case Lose:
		return fixedLossAdjustment
	case Gain:
		return fixedGainAdjustment
	}
	return 0
}

// DaysRemaining counts calendar days from today to goalDate, never less than 1.
// Both dates are compared by their Y/M/D in their own locations, so a DST
// transition in between doesn't shift the count.
func DaysRemaining(today, goalDate time.Time) int {
	days := int(calendarDay(goalDate).Sub(calendarDay(today)) / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeTargets runs a wall-clock Calculator.
func ComputeTargets(stats ProfileStats, goal GoalInput) (Targets, error) {
	return Calculator{}.ComputeTargets(stats, goal)
}

// MacroSplit derives macro grams from a final calorie limit.
func MacroSplit(calorieLimit int, weightKg float64) Targets {
	cal := float64(calorieLimit)
	return Targets{
		CalorieLimit: calorieLimit,
		ProteinLimit: int(math.Round(weightKg * proteinPerKg)),
		CarbLimit:    int(math.Round(cal * carbCalorieShare / kcalPerGramCarb)),
		FatLimit:     int(math.Round(cal * fatCalorieShare / kcalPerGramFat)),
	}
}

// DefaultTargets is the fallback for users who have not entered body stats.
// weightKg may be zero, in which case protein is zero too.
func DefaultTargets(weightKg float64) Targets {
	if weightKg < 0 || math.IsNaN(weightKg) {
		weightKg = 0
	}
	return MacroSplit(DefaultCalorieLimit, weightKg)
}

// BMI returns body mass index rounded to one decimal, or 0 when either input
// is not positive.
func BMI(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10
}

// ExerciseCalories estimates kcal burnt from a MET value, body weight and
// duration in minutes.
func ExerciseCalories(met, weightKg float64, durationMin int) (int, error) {
	if met <= 0 || math.IsNaN(met) {
		return 0, fmt.Errorf("metabolic equivalent must be > 0: %w", ErrInvalidArgument)
	}
	if weightKg <= 0 || math.IsNaN(weightKg) {
		return 0, fmt.Errorf("weight must be > 0: %w", ErrInvalidArgument)
	}
	if durationMin <= 0 {
		return 0, fmt.Errorf("duration must be > 0: %w", ErrInvalidArgument)
	}
	return int(math.Round(met * weightKg * float64(durationMin) / 60)), nil
}
