package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a pre-computed bcrypt hash used when a login username isn't found.
// Running bcrypt against it (instead of returning early) keeps response time
// constant, preventing timing-based username enumeration.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

const minPasswordLen = 8

/* ─── Tokens ─────────────────────────────────────────────────────────── */

// issueToken signs an HS256 JWT whose subject is the user ID.
func issueToken(secret []byte, ttl time.Duration, userID int, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseToken verifies signature and expiry and returns the user ID.
func parseToken(secret []byte, tokenString string) (int, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return userID, nil
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// validateRegistration checks credentials before anything touches the DB.
func validateRegistration(body registerRequest) error {
	if len(strings.TrimSpace(body.Username)) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if strings.Contains(body.Username, "@") {
		return fmt.Errorf("username must not contain @")
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		return fmt.Errorf("email is invalid")
	}
	if len(body.Password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// register creates a user and, when an onboarding block is present, their
// profile, goal and computed daily limits, all in one transaction.
// POST /api/auth/register (public).
func (h *Handler) register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if err := validateRegistration(body); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	onboarding := onboardingRequest{}
	if body.Onboarding != nil {
		onboarding = *body.Onboarding
	}
	info, goal, err := profileFromOnboarding(onboarding)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	targets, err := h.targetsFor(info, goal)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	waterGoal := defaultWaterGoal
	if onboarding.WaterGoal != nil && *onboarding.WaterGoal > 0 {
		waterGoal = *onboarding.WaterGoal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	defer tx.Rollback(c)

	u, err := queryOne[user](tx, c,
		`INSERT INTO users (username, email, password)
		 VALUES (@username, @email, @password) RETURNING *`,
		pgx.NamedArgs{"username": body.Username, "email": body.Email, "password": string(hash)})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			apiError(c, http.StatusConflict, "username or email already taken")
			return
		}
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	if _, err := tx.Exec(c,
		`INSERT INTO user_info (user_id, name, surname, age, weight_kg, height_cm, lifestyle, bmi)
		 VALUES (@userID, @name, @surname, @age, @weightKG, @heightCM, @lifestyle, @bmi)`,
		pgx.NamedArgs{
			"userID": u.ID, "name": info.Name, "surname": info.Surname, "age": info.Age,
			"weightKG": info.WeightKG, "heightCM": info.HeightCM, "lifestyle": info.Lifestyle, "bmi": info.BMI,
		}); err != nil {
		log.Printf("[register] user_info for user %d: %v", u.ID, err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	if _, err := tx.Exec(c,
		`INSERT INTO user_goals (user_id, goal_type, goal_weight_kg, goal_date)
		 VALUES (@userID, @goalType, @goalWeightKG, @goalDate)`,
		pgx.NamedArgs{"userID": u.ID, "goalType": goal.GoalType, "goalWeightKG": goal.GoalWeightKG, "goalDate": goalDateArg(goal.GoalDate)}); err != nil {
		log.Printf("[register] user_goals for user %d: %v", u.ID, err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	args := targetArgs(u.ID, targets)
	args["waterGoal"] = waterGoal
	if _, err := tx.Exec(c,
		`INSERT INTO daily_limits (user_id, calorie_limit, protein_limit, carb_limit, fat_limit, water_goal, auto_limits)
		 VALUES (@userID, @calorieLimit, @proteinLimit, @carbLimit, @fatLimit, @waterGoal, true)`,
		args); err != nil {
		log.Printf("[register] daily_limits for user %d: %v", u.ID, err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	if err := recordLimitHistory(c, tx, dailyLimits{
		UserID:       u.ID,
		CalorieLimit: targets.CalorieLimit,
		ProteinLimit: targets.ProteinLimit,
		CarbLimit:    targets.CarbLimit,
		FatLimit:     targets.FatLimit,
		WaterGoal:    waterGoal,
	}); err != nil {
		log.Printf("[register] limit_history for user %d: %v", u.ID, err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := issueToken(h.jwtSecret, h.tokenTTL, u.ID, time.Now())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to issue token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user_id": u.ID, "limits": targets})
}

// goalDateArg passes a nil *DateOnly through as SQL NULL.
func goalDateArg(d *DateOnly) interface{} {
	if d == nil {
		return nil
	}
	return d.Time
}

// login verifies username-or-email/password and returns a signed token.
// POST /api/auth/login (public, no auth required).
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Login    string `json:"login"` // username or email
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	query, args := loginQuery(body.Login)
	u, lookupErr := queryOne[user](h.db, c, query, args)

	// Always run bcrypt to keep response time constant regardless of whether the
	// username was found. Prevents timing-based username enumeration.
	hashToCheck := string(dummyHash)
	if lookupErr == nil {
		hashToCheck = u.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hashToCheck), []byte(body.Password))

	if lookupErr != nil || compareErr != nil {
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueToken(h.jwtSecret, h.tokenTTL, u.ID, time.Now())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": u.ID})
}

// loginQuery picks the users lookup for a login value: anything with an @ is
// an email, everything else a username.
func loginQuery(login string) (string, pgx.NamedArgs) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return "SELECT * FROM users WHERE email = @email", pgx.NamedArgs{"email": strings.ToLower(login)}
	}
	return "SELECT * FROM users WHERE username = @username", pgx.NamedArgs{"username": login}
}

// checkAvailability reports whether a username and/or email is free.
// GET /api/auth/check-availability?username=&email= (public).
func (h *Handler) checkAvailability(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if username == "" && email == "" {
		apiError(c, http.StatusBadRequest, "username or email query param is required")
		return
	}

	resp := gin.H{}
	if username != "" {
		var taken bool
		if err := h.db.QueryRow(c, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username).Scan(&taken); err != nil {
			apiError(c, http.StatusInternalServerError, "failed to check availability")
			return
		}
		resp["username_available"] = !taken
	}
	if email != "" {
		var taken bool
		if err := h.db.QueryRow(c, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&taken); err != nil {
			apiError(c, http.StatusInternalServerError, "failed to check availability")
			return
		}
		resp["email_available"] = !taken
	}

	c.JSON(http.StatusOK, resp)
}

// getCurrentUser returns the authenticated user. GET /api/users/me.
func (h *Handler) getCurrentUser(c *gin.Context) {
	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @id",
		pgx.NamedArgs{"id": c.GetInt("user_id")})
	if err != nil {
		notFoundOr500(c, err, "user not found", "failed to fetch user")
		return
	}
	c.JSON(http.StatusOK, u)
}

// authMiddleware validates the Bearer JWT and sets user_id on the context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiError(c, http.StatusUnauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		userID, err := parseToken(h.jwtSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			apiError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
