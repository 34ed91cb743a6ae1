package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"lg/biteright-go-api/internal/nutrition"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. Password is hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// userInfo maps to user_info: one row per user with the body profile that
// feeds the target calculator. Numeric fields are nullable until onboarding.
type userInfo struct {
	UserID    int        `json:"user_id"   db:"user_id"`
	Name      string     `json:"name"      db:"name"`
	Surname   string     `json:"surname"   db:"surname"`
	Age       *int       `json:"age"       db:"age"`
	WeightKG  *float64   `json:"weight_kg" db:"weight_kg"`
	HeightCM  *float64   `json:"height_cm" db:"height_cm"`
	Lifestyle string     `json:"lifestyle" db:"lifestyle"`
	BMI       *float64   `json:"bmi"       db:"bmi"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// userGoal maps to user_goals. GoalWeightKG and GoalDate only drive the
// deadline-based adjustment when both are set.
type userGoal struct {
	UserID       int        `json:"user_id"        db:"user_id"`
	GoalType     string     `json:"goal_type"      db:"goal_type"`
	GoalWeightKG *float64   `json:"goal_weight_kg" db:"goal_weight_kg"`
	GoalDate     *DateOnly  `json:"goal_date"      db:"goal_date"`
	UpdatedAt    *time.Time `json:"updated_at"     db:"updated_at"`
}

// dailyLimits maps to daily_limits. AutoLimits means the limits are
// recomputed whenever the profile or goal changes.
type dailyLimits struct {
	UserID       int        `json:"user_id"       db:"user_id"`
	CalorieLimit int        `json:"calorie_limit" db:"calorie_limit"`
	ProteinLimit int        `json:"protein_limit" db:"protein_limit"`
	CarbLimit    int        `json:"carb_limit"    db:"carb_limit"`
	FatLimit     int        `json:"fat_limit"     db:"fat_limit"`
	WaterGoal    int        `json:"water_goal"    db:"water_goal"`
	AutoLimits   bool       `json:"auto_limits"   db:"auto_limits"`
	UpdatedAt    *time.Time `json:"updated_at"    db:"updated_at"`
}

// limitHistoryEntry maps to limit_history: the limits in force from
// DateChanged until the next entry.
type limitHistoryEntry struct {
	ID           int      `json:"id"            db:"id"`
	UserID       int      `json:"user_id"       db:"user_id"`
	DateChanged  DateOnly `json:"date_changed"  db:"date_changed"`
	CalorieLimit int      `json:"calorie_limit" db:"calorie_limit"`
	ProteinLimit int      `json:"protein_limit" db:"protein_limit"`
	CarbLimit    int      `json:"carb_limit"    db:"carb_limit"`
	FatLimit     int      `json:"fat_limit"     db:"fat_limit"`
	WaterGoal    int      `json:"water_goal"    db:"water_goal"`
}

// ingredient maps to ingredients. Nutrition values are per PortionSize grams.
type ingredient struct {
	ID          int64      `json:"id"           db:"id"`
	Name        string     `json:"name"         db:"name"`
	Brand       string     `json:"brand"        db:"brand"`
	PortionSize float64    `json:"portion_size" db:"portion_size"`
	Calories    float64    `json:"calories"     db:"calories"`
	Protein     float64    `json:"protein"      db:"protein"`
	Carbs       float64    `json:"carbs"        db:"carbs"`
	Fat         float64    `json:"fat"          db:"fat"`
	Source      string     `json:"source"       db:"source"`
	CreatedAt   *time.Time `json:"created_at"   db:"created_at"`
}

// meal maps to meals. Contents and Totals are filled from meal_contents.
type meal struct {
	ID          int        `json:"id"          db:"id"`
	UserID      int        `json:"user_id"     db:"user_id"`
	Name        string     `json:"name"        db:"name"`
	Description string     `json:"description" db:"description"`
	MealType    string     `json:"meal_type"   db:"meal_type"`
	MealDate    time.Time  `json:"meal_date"   db:"meal_date"`
	CreatedAt   *time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"  db:"updated_at"`

	Contents []mealContent   `json:"contents" db:"-"`
	Totals   nutritionTotals `json:"totals"   db:"-"`
}

// mealContent is one meal_contents row joined with its ingredient.
type mealContent struct {
	ID           int64   `json:"id"            db:"id"`
	MealID       int     `json:"meal_id"       db:"meal_id"`
	IngredientID int64   `json:"ingredient_id" db:"ingredient_id"`
	Amount       float64 `json:"amount"        db:"amount"`
	Unit         string  `json:"unit"          db:"unit"`
	Name         string  `json:"name"          db:"name"`
	Brand        string  `json:"brand"         db:"brand"`
	PortionSize  float64 `json:"portion_size"  db:"portion_size"`
	Calories     float64 `json:"calories"      db:"calories"`
	Protein      float64 `json:"protein"       db:"protein"`
	Carbs        float64 `json:"carbs"         db:"carbs"`
	Fat          float64 `json:"fat"           db:"fat"`
}

// datedMealContent is a mealContent tagged with its meal's calendar day.
// Used by range summaries to group a single query's rows per day.
type datedMealContent struct {
	Day DateOnly `db:"day"`
	mealContent
}

// recipe maps to recipes. Contents and Totals are filled from recipe_contents.
type recipe struct {
	ID          int        `json:"id"          db:"id"`
	UserID      int        `json:"user_id"     db:"user_id"`
	Name        string     `json:"name"        db:"name"`
	Description string     `json:"description" db:"description"`
	ImageURL    string     `json:"image_url"   db:"image_url"`
	CreatedAt   *time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"  db:"updated_at"`

	Contents []recipeContent `json:"contents" db:"-"`
	Totals   nutritionTotals `json:"totals"   db:"-"`
}

// recipeContent is one recipe_contents row joined with its ingredient.
type recipeContent struct {
	ID           int64   `json:"id"            db:"id"`
	RecipeID     int     `json:"recipe_id"     db:"recipe_id"`
	IngredientID int64   `json:"ingredient_id" db:"ingredient_id"`
	Amount       float64 `json:"amount"        db:"amount"`
	Unit         string  `json:"unit"          db:"unit"`
	Name         string  `json:"name"          db:"name"`
	Brand        string  `json:"brand"         db:"brand"`
	PortionSize  float64 `json:"portion_size"  db:"portion_size"`
	Calories     float64 `json:"calories"      db:"calories"`
	Protein      float64 `json:"protein"       db:"protein"`
	Carbs        float64 `json:"carbs"         db:"carbs"`
	Fat          float64 `json:"fat"           db:"fat"`
}

type waterIntake struct {
	ID          int        `json:"id"           db:"id"`
	UserID      int        `json:"user_id"      db:"user_id"`
	IntakeDate  time.Time  `json:"intake_date"  db:"intake_date"`
	WaterAmount int        `json:"water_amount" db:"water_amount"`
	CreatedAt   *time.Time `json:"created_at"   db:"created_at"`
}

// weightEntry maps to weight_history. UNIQUE(user_id, date).
type weightEntry struct {
	ID        int        `json:"id"         db:"id"`
	UserID    int        `json:"user_id"    db:"user_id"`
	Date      DateOnly   `json:"date"       db:"date"`
	WeightKG  float64    `json:"weight_kg"  db:"weight_kg"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

type exerciseInfo struct {
	ID                  int     `json:"id"                   db:"id"`
	Name                string  `json:"name"                 db:"name"`
	MetabolicEquivalent float64 `json:"metabolic_equivalent" db:"metabolic_equivalent"`
}

// userExercise is a user_exercises row joined with its exercise name.
type userExercise struct {
	ID            int        `json:"id"             db:"id"`
	UserID        int        `json:"user_id"        db:"user_id"`
	ExerciseID    int        `json:"exercise_id"    db:"exercise_id"`
	ExerciseName  string     `json:"exercise_name"  db:"exercise_name"`
	ActivityDate  time.Time  `json:"activity_date"  db:"activity_date"`
	DurationMin   int        `json:"duration_min"   db:"duration_min"`
	CaloriesBurnt int        `json:"calories_burnt" db:"calories_burnt"`
	CreatedAt     *time.Time `json:"created_at"     db:"created_at"`
}

// dayActivityRow is one day of water and exercise totals from the
// range-summary GROUP BY queries.
type dayActivityRow struct {
	Day   DateOnly `db:"day"`
	Total int      `db:"total"`
}

/* ─── Responses ──────────────────────────────────────────────────────── */

// nutritionTotals is the rounded JSON form of nutrition.Totals.
type nutritionTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// daySummary is one day's entry in the summary endpoints.
type daySummary struct {
	Date          DateOnly              `json:"date"`
	Limits        dailyLimits           `json:"limits"`
	Totals        nutritionTotals       `json:"totals"`
	WaterDrank    int                   `json:"water_drank"`
	CaloriesBurnt int                   `json:"calories_burnt"`
	NetCalories   int                   `json:"net_calories"`
	CaloriesLeft  int                   `json:"calories_left"`
	Progress      nutrition.DayProgress `json:"progress"`
	MealCount     int                   `json:"meal_count"`
	HasData       bool                  `json:"has_data"`
}

// progressStats aggregates a date range for GET /daily-summary/range.
type progressStats struct {
	DaysTracked       int     `json:"days_tracked"`
	DaysOnBudget      int     `json:"days_on_budget"`
	AvgCalories       float64 `json:"avg_calories"`
	AvgProtein        float64 `json:"avg_protein"`
	AvgCaloriesBurnt  float64 `json:"avg_calories_burnt"`
	AvgWaterDrank     float64 `json:"avg_water_drank"`
	TotalCaloriesLeft int     `json:"total_calories_left"`
}

type rangeSummaryResponse struct {
	Days  []daySummary  `json:"days"`
	Stats progressStats `json:"stats"`
}

// registerRequest is the body for POST /api/auth/register. Onboarding is
// optional; without it the user starts on default limits.
type registerRequest struct {
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	Password   string             `json:"password"`
	Onboarding *onboardingRequest `json:"onboarding"`
}

// onboardingRequest carries the profile and goal collected during sign-up.
// Also the body of POST /api/targets/calculate.
type onboardingRequest struct {
	Name         string   `json:"name"`
	Surname      string   `json:"surname"`
	Age          *int     `json:"age"`
	WeightKG     *float64 `json:"weight_kg"`
	HeightCM     *float64 `json:"height_cm"`
	Lifestyle    string   `json:"lifestyle"`
	GoalType     string   `json:"goal_type"`
	GoalWeightKG *float64 `json:"goal_weight_kg"`
	GoalDate     *string  `json:"goal_date"` // YYYY-MM-DD
	WaterGoal    *int     `json:"water_goal"`
}

// patchUserInfoRequest is the body for PUT /api/user-info. Only non-nil fields are written.
type patchUserInfoRequest struct {
	Name      *string  `json:"name"`
	Surname   *string  `json:"surname"`
	Age       *int     `json:"age"`
	WeightKG  *float64 `json:"weight_kg"`
	HeightCM  *float64 `json:"height_cm"`
	Lifestyle *string  `json:"lifestyle"`
}

// patchUserGoalRequest is the body for PUT /api/user-goal. ClearTarget drops
// goal weight and date so the fixed adjustment applies.
type patchUserGoalRequest struct {
	GoalType     *string  `json:"goal_type"`
	GoalWeightKG *float64 `json:"goal_weight_kg"`
	GoalDate     *string  `json:"goal_date"`
	ClearTarget  bool     `json:"clear_target"`
}

type patchDailyLimitsRequest struct {
	CalorieLimit *int  `json:"calorie_limit"`
	ProteinLimit *int  `json:"protein_limit"`
	CarbLimit    *int  `json:"carb_limit"`
	FatLimit     *int  `json:"fat_limit"`
	WaterGoal    *int  `json:"water_goal"`
	AutoLimits   *bool `json:"auto_limits"`
}

// mealItemRequest is one ingredient line in a meal create/update body.
type mealItemRequest struct {
	IngredientID int64   `json:"ingredient_id"`
	Amount       float64 `json:"amount"`
	Unit         string  `json:"unit"`
}

type createMealRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	MealType    string            `json:"meal_type"`
	MealDate    *time.Time        `json:"meal_date"`
	Items       []mealItemRequest `json:"items"`
}

type updateMealRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	MealType    *string            `json:"meal_type"`
	MealDate    *time.Time         `json:"meal_date"`
	Items       *[]mealItemRequest `json:"items"` // replaces all contents when present
}

type createRecipeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	Items       []mealItemRequest `json:"items"`
}

type updateRecipeRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	ImageURL    *string            `json:"image_url"`
	Items       *[]mealItemRequest `json:"items"` // replaces all contents when present
}

// logRecipeRequest is the body for POST /api/recipes/:id/log. Servings scales
// every ingredient amount and defaults to 1.
type logRecipeRequest struct {
	MealType string     `json:"meal_type"`
	MealDate *time.Time `json:"meal_date"`
	Servings *float64   `json:"servings"`
}
