package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// getUserInfo returns the body profile for the authenticated user.
// GET /api/user-info.
func (h *Handler) getUserInfo(c *gin.Context) {
	info, err := queryOne[userInfo](h.db, c,
		"SELECT * FROM user_info WHERE user_id = @userID",
		pgx.NamedArgs{"userID": c.GetInt("user_id")})
	if err != nil {
		notFoundOr500(c, err, "user info not found", "failed to fetch user info")
		return
	}
	c.JSON(http.StatusOK, info)
}

// updateUserInfo updates only the provided profile fields.
// PUT /api/user-info. Uses pointer fields in the request body to distinguish
// "not provided" from zero; only non-nil fields get updated. BMI is
// recomputed from the stored row, and daily limits follow when auto_limits is on.
func (h *Handler) updateUserInfo(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchUserInfoRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	lifestyle := ""
	if body.Lifestyle != nil {
		lifestyle = *body.Lifestyle
		if lifestyle == "" {
			apiError(c, http.StatusBadRequest, "lifestyle must not be empty")
			return
		}
	}
	if err := validateProfile(body.Age, body.WeightKG, body.HeightCM, lifestyle); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	// Build SET clause dynamically, only updating fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}

	if body.Name != nil {
		setClauses = append(setClauses, "name = @name")
		args["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Surname != nil {
		setClauses = append(setClauses, "surname = @surname")
		args["surname"] = strings.TrimSpace(*body.Surname)
	}
	if body.Age != nil {
		setClauses = append(setClauses, "age = @age")
		args["age"] = *body.Age
	}
	if body.WeightKG != nil {
		setClauses = append(setClauses, "weight_kg = @weightKG")
		args["weightKG"] = *body.WeightKG
	}
	if body.HeightCM != nil {
		setClauses = append(setClauses, "height_cm = @heightCM")
		args["heightCM"] = *body.HeightCM
	}
	if body.Lifestyle != nil {
		setClauses = append(setClauses, "lifestyle = @lifestyle")
		args["lifestyle"] = lifestyle
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE user_info SET " +
		strings.Join(setClauses, ", ") +
		", updated_at = now() WHERE user_id = @userID RETURNING *"

	info, err := queryOne[userInfo](h.db, c, query, args)
	if err != nil {
		notFoundOr500(c, err, "user info not found", "failed to update user info")
		return
	}

	if body.WeightKG != nil || body.HeightCM != nil {
		info, err = h.storeBMI(c, h.db, info)
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to update bmi")
			return
		}
	}
	h.refreshAutoLimits(c, userID)

	c.JSON(http.StatusOK, info)
}

// getUserGoal returns the goal for the authenticated user. GET /api/user-goal.
func (h *Handler) getUserGoal(c *gin.Context) {
	goal, err := queryOne[userGoal](h.db, c,
		"SELECT * FROM user_goals WHERE user_id = @userID",
		pgx.NamedArgs{"userID": c.GetInt("user_id")})
	if err != nil {
		notFoundOr500(c, err, "goal not found", "failed to fetch goal")
		return
	}
	c.JSON(http.StatusOK, goal)
}

// updateUserGoal upserts the goal. clear_target drops goal weight and date
// so the fixed deficit/surplus applies again.
// PUT /api/user-goal.
func (h *Handler) updateUserGoal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchUserGoalRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	goalType := ""
	if body.GoalType != nil {
		goalType = *body.GoalType
	}
	if err := validateGoal(goalType, body.GoalWeightKG); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	goalDate, err := parseGoalDate(body.GoalDate)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	args := pgx.NamedArgs{
		"userID":       userID,
		"goalType":     body.GoalType,
		"goalWeightKG": body.GoalWeightKG,
		"goalDate":     goalDateArg(goalDate),
		"clear":        body.ClearTarget,
	}
	goal, err := queryOne[userGoal](h.db, c,
		`INSERT INTO user_goals (user_id, goal_type, goal_weight_kg, goal_date)
		 VALUES (@userID, COALESCE(@goalType, 'maintain'), @goalWeightKG, @goalDate)
		 ON CONFLICT (user_id) DO UPDATE SET
			goal_type      = COALESCE(@goalType, user_goals.goal_type),
			goal_weight_kg = CASE WHEN @clear THEN NULL ELSE COALESCE(@goalWeightKG, user_goals.goal_weight_kg) END,
			goal_date      = CASE WHEN @clear THEN NULL ELSE COALESCE(@goalDate::date, user_goals.goal_date) END,
			updated_at     = now()
		 RETURNING *`,
		args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update goal")
		return
	}
	h.refreshAutoLimits(c, userID)

	c.JSON(http.StatusOK, goal)
}

// storeBMI recomputes BMI from the row's weight and height and persists it.
func (h *Handler) storeBMI(c *gin.Context, q pgxQuerier, info userInfo) (userInfo, error) {
	return queryOne[userInfo](q, c,
		"UPDATE user_info SET bmi = @bmi WHERE user_id = @userID RETURNING *",
		pgx.NamedArgs{"userID": info.UserID, "bmi": bmiFor(info)})
}
