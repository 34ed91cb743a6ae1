// CLI tool to create a user with bcrypt-hashed password, an empty profile and
// default daily limits (2000 kcal, auto_limits on).
// Usage: go run ./cmd/create-user
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"lg/biteright-go-api/internal/nutrition"
)

const defaultWaterGoal = 2500

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.ToLower(strings.TrimSpace(email))

	fmt.Print("Password: ")
	password, _ := reader.ReadString('\n')
	password = strings.TrimSpace(password)

	if username == "" || email == "" || len(password) < 8 {
		fmt.Fprintln(os.Stderr, "Username and email are required; password needs at least 8 characters")
		os.Exit(1)
	}
	if strings.Contains(username, "@") {
		fmt.Fprintln(os.Stderr, "Username must not contain @")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting transaction: %v\n", err)
		os.Exit(1)
	}
	defer tx.Rollback(ctx)

	var userID int
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3) RETURNING id`,
		username, email, string(hash),
	).Scan(&userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
		os.Exit(1)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_info (user_id, lifestyle) VALUES ($1, $2)`,
		userID, string(nutrition.Moderate)); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user info: %v\n", err)
		os.Exit(1)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO user_goals (user_id, goal_type) VALUES ($1, $2)`,
		userID, string(nutrition.Maintain)); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user goal: %v\n", err)
		os.Exit(1)
	}

	limits := nutrition.DefaultTargets(0)
	if _, err := tx.Exec(ctx,
		`INSERT INTO daily_limits (user_id, calorie_limit, protein_limit, carb_limit, fat_limit, water_goal, auto_limits)
		 VALUES ($1, $2, $3, $4, $5, $6, true)`,
		userID, limits.CalorieLimit, limits.ProteinLimit, limits.CarbLimit, limits.FatLimit, defaultWaterGoal); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating daily limits: %v\n", err)
		os.Exit(1)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO limit_history (user_id, date_changed, calorie_limit, protein_limit, carb_limit, fat_limit, water_goal)
		 VALUES ($1, CURRENT_DATE, $2, $3, $4, $5, $6)`,
		userID, limits.CalorieLimit, limits.ProteinLimit, limits.CarbLimit, limits.FatLimit, defaultWaterGoal); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording limit history: %v\n", err)
		os.Exit(1)
	}

	if err := tx.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error committing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("  ID:            %d\n", userID)
	fmt.Printf("  Username:      %s\n", username)
	fmt.Printf("  Calorie limit: %d kcal\n", limits.CalorieLimit)
}
