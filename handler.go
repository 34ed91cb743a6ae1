package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lg/biteright-go-api/internal/events"
	"lg/biteright-go-api/internal/foodlookup"
	"lg/biteright-go-api/internal/nutrition"
)

// foodSearcher is the external ingredient lookup (OpenFoodFacts in production).
type foodSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]foodlookup.Food, error)
}

// Handler holds shared dependencies (db pool, config) for all route handlers.
type Handler struct {
	db        *pgxpool.Pool
	jwtSecret []byte
	tokenTTL  time.Duration
	foods     foodSearcher
	events    events.Publisher
	calc      nutrition.Calculator
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
func queryOne[T any](q pgxQuerier, c context.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := q.Query(c, sql, args)
	if err != nil {
		log.Printf("[queryOne] Query error: %v", err)
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("[queryOne] Scan error: %v", err)
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](q pgxQuerier, c context.Context, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := q.Query(c, sql, args)
	if err != nil {
		log.Printf("[queryMany] Query error: %v", err)
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Printf("[queryMany] Scan error: %v", err)
	}
	return results, err
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, so the helpers
// work inside transactions too.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// notFoundOr500 maps pgx.ErrNoRows to 404 and anything else to 500.
func notFoundOr500(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, pgx.ErrNoRows) {
		apiError(c, http.StatusNotFound, notFound)
		return
	}
	apiError(c, http.StatusInternalServerError, failed)
}

// publish fires a domain event without blocking the response.
func (h *Handler) publish(eventType string, userID int, payload interface{}) {
	if h.events == nil {
		return
	}
	events.PublishAsync(h.events, events.New(eventType, userID, payload))
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// Neon closes idle connections after ~5 minutes.
func getDBPool(dbURL string) *pgxpool.Pool {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse DB URL: %v\n", err)
		os.Exit(1)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from Neon's server-side prepared statement cache after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	log.Println("DB pool ready!")
	return pool
}

// healthz pings the database. GET /healthz.
func (h *Handler) healthz(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		apiError(c, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	router.Use(metricsMiddleware())
	router.GET("/healthz", h.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	router.POST("/api/auth/register", h.register)
	router.POST("/api/auth/login", h.login)
	router.GET("/api/auth/check-availability", h.checkAvailability)
	router.POST("/api/targets/calculate", h.calculateTargets)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/users/me", h.getCurrentUser)

	api.GET("/user-info", h.getUserInfo)
	api.PUT("/user-info", h.updateUserInfo)
	api.GET("/user-goal", h.getUserGoal)
	api.PUT("/user-goal", h.updateUserGoal)

	api.GET("/daily-limits", h.getDailyLimits)
	api.PUT("/daily-limits", h.updateDailyLimits)
	api.POST("/daily-limits/recommend", h.recommendDailyLimits)
	api.GET("/limit-history", h.getLimitHistory)

	api.GET("/ingredients", h.searchIngredients)
	api.POST("/ingredients", h.createIngredient)
	api.POST("/ingredients/lookup", h.lookupIngredient)

	api.GET("/meals", h.getMeals)
	api.POST("/meals", h.createMeal)
	api.POST("/meals/preview", h.previewMeal)
	api.GET("/meals/:id", h.getMeal)
	api.PUT("/meals/:id", h.updateMeal)
	api.DELETE("/meals/:id", h.deleteMeal)

	api.GET("/recipes", h.searchRecipes)
	api.POST("/recipes", h.createRecipe)
	api.GET("/recipes/:id", h.getRecipe)
	api.GET("/recipes/:id/macros", h.getRecipeMacros)
	api.POST("/recipes/:id/log", h.logRecipe)
	api.PUT("/recipes/:id", h.updateRecipe)
	api.DELETE("/recipes/:id", h.deleteRecipe)

	api.GET("/water-intake", h.getWaterIntake)
	api.GET("/water-intake/last", h.getLastWaterIntake)
	api.POST("/water-intake", h.addWaterIntake)
	api.DELETE("/water-intake/:id", h.deleteWaterIntake)

	api.GET("/weight-log", h.getWeightLog)
	api.GET("/weight-log/last", h.getLastWeightEntry)
	api.POST("/weight-log", h.upsertWeightEntry)
	api.PUT("/weight-log/:id", h.updateWeightEntry)
	api.DELETE("/weight-log/:id", h.deleteWeightEntry)

	api.GET("/exercise-info", h.searchExerciseInfo)
	api.POST("/exercise-info", h.createExerciseInfo)
	api.GET("/exercises", h.getExercises)
	api.POST("/exercises", h.createExercise)
	api.PUT("/exercises/:id", h.updateExercise)
	api.DELETE("/exercises/:id", h.deleteExercise)

	api.GET("/daily-summary", h.getDailySummary)
	api.GET("/daily-summary/range", h.getSummaryRange)
	api.GET("/daily-summary/week", h.getWeekSummary)
	api.GET("/daily-summary/streak", h.getStreak)
	api.GET("/daily-summary/average", h.getAverages)
}
