package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// maxWaterPerEntry caps a single logged drink (ml).
const maxWaterPerEntry = 5000

// getWaterIntake returns the day's water entries and their sum.
// GET /api/water-intake?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getWaterIntake(c *gin.Context) {
	userID := c.GetInt("user_id")
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entries, err := queryMany[waterIntake](h.db, c,
		`SELECT * FROM water_intake
		 WHERE user_id = @userID AND intake_date::date = @date
		 ORDER BY intake_date`,
		pgx.NamedArgs{"userID": userID, "date": date})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch water intake")
		return
	}
	if entries == nil {
		entries = []waterIntake{}
	}
	total := 0
	for _, e := range entries {
		total += e.WaterAmount
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "entries": entries, "total": total})
}

// getLastWaterIntake returns the most recent entry. GET /api/water-intake/last.
func (h *Handler) getLastWaterIntake(c *gin.Context) {
	entry, err := queryOne[waterIntake](h.db, c,
		`SELECT * FROM water_intake WHERE user_id = @userID
		 ORDER BY intake_date DESC, id DESC LIMIT 1`,
		pgx.NamedArgs{"userID": c.GetInt("user_id")})
	if err != nil {
		notFoundOr500(c, err, "no water intake logged", "failed to fetch water intake")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// addWaterIntake logs a drink. POST /api/water-intake.
// Body: { "water_amount": 250, "intake_date"?: RFC3339 }.
func (h *Handler) addWaterIntake(c *gin.Context) {
	var body struct {
		WaterAmount int        `json:"water_amount"`
		IntakeDate  *time.Time `json:"intake_date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.WaterAmount <= 0 || body.WaterAmount > maxWaterPerEntry {
		apiError(c, http.StatusBadRequest, "water_amount must be between 1 and 5000")
		return
	}
	intakeDate := time.Now()
	if body.IntakeDate != nil {
		intakeDate = *body.IntakeDate
	}

	entry, err := queryOne[waterIntake](h.db, c,
		`INSERT INTO water_intake (user_id, intake_date, water_amount)
		 VALUES (@userID, @intakeDate, @waterAmount)
		 RETURNING *`,
		pgx.NamedArgs{"userID": c.GetInt("user_id"), "intakeDate": intakeDate, "waterAmount": body.WaterAmount})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to add water intake")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// deleteWaterIntake removes one entry. DELETE /api/water-intake/:id.
func (h *Handler) deleteWaterIntake(c *gin.Context) {
	result, err := h.db.Exec(c,
		"DELETE FROM water_intake WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": c.Param("id"), "userID": c.GetInt("user_id")})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete water intake")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "water intake not found")
		return
	}

	c.Status(http.StatusNoContent)
}
