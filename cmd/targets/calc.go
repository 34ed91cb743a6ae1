package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"lg/biteright-go-api/internal/nutrition"
)

var (
	calcWeight     float64
	calcHeight     float64
	calcAge        int
	calcActivity   string
	calcGoal       string
	calcGoalWeight float64
	calcGoalDate   string
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute daily calorie and macro limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := nutrition.ActivityLevel(calcActivity)
		if !nutrition.ValidActivityLevel(level) {
			return fmt.Errorf("invalid --activity %q (sedentary, light, moderate, active, athlete)", calcActivity)
		}
		goalType := nutrition.GoalType(calcGoal)
		if !nutrition.ValidGoalType(goalType) {
			return fmt.Errorf("invalid --goal %q (lose, maintain, gain)", calcGoal)
		}

		stats := nutrition.ProfileStats{WeightKg: calcWeight, HeightCm: calcHeight, AgeYears: calcAge, ActivityLevel: level}
		goal := nutrition.GoalInput{Type: goalType}
		if calcGoalWeight > 0 {
			gw := calcGoalWeight
			goal.GoalWeightKg = &gw
		}
		if calcGoalDate != "" {
			d, err := time.ParseInLocation("2006-01-02", calcGoalDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --goal-date (expected YYYY-MM-DD)")
			}
			goal.GoalDate = &d
		}

		targets, err := nutrition.ComputeTargets(stats, goal)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), targets)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "BMR:      %d kcal\n", int(math.Round(nutrition.BMR(stats))))
		fmt.Fprintf(out, "TDEE:     %d kcal\n", int(math.Round(nutrition.TDEE(stats))))
		fmt.Fprintf(out, "Calories: %d kcal\n", targets.CalorieLimit)
		fmt.Fprintf(out, "Protein:  %d g\n", targets.ProteinLimit)
		fmt.Fprintf(out, "Carbs:    %d g\n", targets.CarbLimit)
		fmt.Fprintf(out, "Fat:      %d g\n", targets.FatLimit)
		return nil
	},
}

var (
	bmiWeight float64
	bmiHeight float64
)

var bmiCmd = &cobra.Command{
	Use:   "bmi",
	Short: "Compute body mass index",
	RunE: func(cmd *cobra.Command, args []string) error {
		bmi := nutrition.BMI(bmiWeight, bmiHeight)
		if bmi == 0 {
			return fmt.Errorf("--weight and --height must be > 0")
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), map[string]float64{"bmi": bmi})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "BMI: %.1f\n", bmi)
		return nil
	},
}

func init() {
	calcCmd.Flags().Float64Var(&calcWeight, "weight", 0, "Body weight in kg")
	calcCmd.Flags().Float64Var(&calcHeight, "height", 0, "Height in cm")
	calcCmd.Flags().IntVar(&calcAge, "age", 0, "Age in years")
	calcCmd.Flags().StringVar(&calcActivity, "activity", string(nutrition.Moderate), "Activity level")
	calcCmd.Flags().StringVar(&calcGoal, "goal", string(nutrition.Maintain), "Goal: lose, maintain or gain")
	calcCmd.Flags().Float64Var(&calcGoalWeight, "goal-weight", 0, "Goal weight in kg")
	calcCmd.Flags().StringVar(&calcGoalDate, "goal-date", "", "Goal date YYYY-MM-DD")

	bmiCmd.Flags().Float64Var(&bmiWeight, "weight", 0, "Body weight in kg")
	bmiCmd.Flags().Float64Var(&bmiHeight, "height", 0, "Height in cm")

	rootCmd.AddCommand(calcCmd, bmiCmd)
}
