package main

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/biteright-go-api/internal/events"
	"lg/biteright-go-api/internal/nutrition"
)

const maxExerciseMinutes = 24 * 60

/* ─── Exercise catalog ───────────────────────────────────────────────── */

// searchExerciseInfo lists catalog exercises, optionally filtered by ?name=.
// GET /api/exercise-info.
func (h *Handler) searchExerciseInfo(c *gin.Context) {
	items, err := queryMany[exerciseInfo](h.db, c,
		`SELECT * FROM exercise_info
		 WHERE @name = '' OR name ILIKE '%' || @name || '%'
		 ORDER BY name
		 LIMIT 100`,
		pgx.NamedArgs{"name": strings.TrimSpace(c.Query("name"))})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to search exercises")
		return
	}
	if items == nil {
		items = []exerciseInfo{}
	}
	c.JSON(http.StatusOK, items)
}

// createExerciseInfo adds a catalog exercise. POST /api/exercise-info.
func (h *Handler) createExerciseInfo(c *gin.Context) {
	var body exerciseInfo
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		apiError(c, http.StatusBadRequest, "name is required")
		return
	}
	if body.MetabolicEquivalent <= 0 || math.IsNaN(body.MetabolicEquivalent) {
		apiError(c, http.StatusBadRequest, "metabolic_equivalent must be > 0")
		return
	}

	item, err := queryOne[exerciseInfo](h.db, c,
		`INSERT INTO exercise_info (name, metabolic_equivalent)
		 VALUES (@name, @met) RETURNING *`,
		pgx.NamedArgs{"name": body.Name, "met": body.MetabolicEquivalent})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create exercise")
		return
	}
	c.JSON(http.StatusCreated, item)
}

/* ─── User exercises ─────────────────────────────────────────────────── */

const userExerciseSelect = `SELECT ue.id, ue.user_id, ue.exercise_id, ei.name AS exercise_name,
	ue.activity_date, ue.duration_min, ue.calories_burnt, ue.created_at
	FROM user_exercises ue JOIN exercise_info ei ON ei.id = ue.exercise_id`

// getExercises returns the day's logged exercises.
// GET /api/exercises?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getExercises(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	items, err := queryMany[userExercise](h.db, c,
		userExerciseSelect+`
		 WHERE ue.user_id = @userID AND ue.activity_date::date = @date
		 ORDER BY ue.activity_date`,
		pgx.NamedArgs{"userID": c.GetInt("user_id"), "date": date})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch exercises")
		return
	}
	if items == nil {
		items = []userExercise{}
	}
	c.JSON(http.StatusOK, items)
}

// caloriesBurnt looks up the exercise's MET and the user's current weight and
// estimates kcal for the duration.
func (h *Handler) caloriesBurnt(ctx context.Context, userID, exerciseID, durationMin int) (int, error) {
	info, err := queryOne[exerciseInfo](h.db, ctx,
		"SELECT * FROM exercise_info WHERE id = @id",
		pgx.NamedArgs{"id": exerciseID})
	if err != nil {
		return 0, err
	}
	var weight *float64
	if err := h.db.QueryRow(ctx, "SELECT weight_kg FROM user_info WHERE user_id = $1", userID).Scan(&weight); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if weight == nil {
		return 0, errMissingWeight
	}
	return nutrition.ExerciseCalories(info.MetabolicEquivalent, *weight, durationMin)
}

var errMissingWeight = errors.New("set weight_kg in your profile before logging exercise")

// exerciseError maps caloriesBurnt failures to a status.
func exerciseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		apiError(c, http.StatusBadRequest, "unknown exercise_id")
	case errors.Is(err, errMissingWeight):
		apiError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, nutrition.ErrInvalidArgument):
		apiError(c, http.StatusBadRequest, err.Error())
	default:
		apiError(c, http.StatusInternalServerError, "failed to compute calories burnt")
	}
}

// createExercise logs an exercise with calories derived from MET × weight × duration.
// POST /api/exercises. Body: { "exercise_id", "duration_min", "activity_date"? }.
func (h *Handler) createExercise(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		ExerciseID   int        `json:"exercise_id"`
		DurationMin  int        `json:"duration_min"`
		ActivityDate *time.Time `json:"activity_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.DurationMin <= 0 || body.DurationMin > maxExerciseMinutes {
		apiError(c, http.StatusBadRequest, "duration_min must be between 1 and 1440")
		return
	}
	activityDate := time.Now()
	if body.ActivityDate != nil {
		activityDate = *body.ActivityDate
	}

	burnt, err := h.caloriesBurnt(c, userID, body.ExerciseID, body.DurationMin)
	if err != nil {
		exerciseError(c, err)
		return
	}

	var id int
	if err := h.db.QueryRow(c,
		`INSERT INTO user_exercises (user_id, exercise_id, activity_date, duration_min, calories_burnt)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, body.ExerciseID, activityDate, body.DurationMin, burnt).Scan(&id); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to log exercise")
		return
	}
	item, err := queryOne[userExercise](h.db, c,
		userExerciseSelect+" WHERE ue.id = @id", pgx.NamedArgs{"id": id})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to load exercise")
		return
	}

	h.publish(events.ExerciseLogged, userID, item)
	c.JSON(http.StatusCreated, item)
}

// updateExercise changes duration, exercise or date; calories are recomputed.
// PUT /api/exercises/:id.
func (h *Handler) updateExercise(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	var body struct {
		ExerciseID   *int       `json:"exercise_id"`
		DurationMin  *int       `json:"duration_min"`
		ActivityDate *time.Time `json:"activity_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.DurationMin != nil && (*body.DurationMin <= 0 || *body.DurationMin > maxExerciseMinutes) {
		apiError(c, http.StatusBadRequest, "duration_min must be between 1 and 1440")
		return
	}

	current, err := queryOne[userExercise](h.db, c,
		userExerciseSelect+" WHERE ue.id = @id AND ue.user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		notFoundOr500(c, err, "exercise not found", "failed to fetch exercise")
		return
	}
	if body.ExerciseID != nil {
		current.ExerciseID = *body.ExerciseID
	}
	if body.DurationMin != nil {
		current.DurationMin = *body.DurationMin
	}
	if body.ActivityDate != nil {
		current.ActivityDate = *body.ActivityDate
	}

	burnt, err := h.caloriesBurnt(c, userID, current.ExerciseID, current.DurationMin)
	if err != nil {
		exerciseError(c, err)
		return
	}

	if _, err := h.db.Exec(c,
		`UPDATE user_exercises SET exercise_id = @exerciseID, duration_min = @durationMin,
			activity_date = @activityDate, calories_burnt = @burnt
		 WHERE id = @id AND user_id = @userID`,
		pgx.NamedArgs{
			"id": current.ID, "userID": userID, "exerciseID": current.ExerciseID,
			"durationMin": current.DurationMin, "activityDate": current.ActivityDate, "burnt": burnt,
		}); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update exercise")
		return
	}
	item, err := queryOne[userExercise](h.db, c,
		userExerciseSelect+" WHERE ue.id = @id", pgx.NamedArgs{"id": current.ID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to load exercise")
		return
	}

	c.JSON(http.StatusOK, item)
}

// deleteExercise removes a logged exercise. DELETE /api/exercises/:id.
func (h *Handler) deleteExercise(c *gin.Context) {
	result, err := h.db.Exec(c,
		"DELETE FROM user_exercises WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": c.Param("id"), "userID": c.GetInt("user_id")})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete exercise")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "exercise not found")
		return
	}

	c.Status(http.StatusNoContent)
}
