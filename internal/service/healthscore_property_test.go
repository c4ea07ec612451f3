package service

import (
	"context"
	"testing"
	"time"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

var propertySymptomTypes = []string{
	"headache", "nausea", "chest pain", "shortness of breath",
	"fatigue", "dizziness", "heart palpitations", "back pain",
}

var propertyMoodTypes = []model.MoodType{
	model.MoodGreat, model.MoodGood, model.MoodOkay, model.MoodLow, model.MoodBad,
}

var propertySeverities = []model.SymptomSeverity{
	model.SymptomSeverityMild, model.SymptomSeverityModerate, model.SymptomSeveritySevere,
}

func TestProperty_ScoreAlwaysInRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Score stays within [0, 100] for any mix of signals", prop.ForAll(
		func(symptomCount, moodCount, typeSeed, severitySeed, moodSeed, stressLevel int, sleepHours float64, active bool) bool {
			// Build an arbitrary symptom set, cycling through types and
			// severities so red-flag and severe combinations occur
			symptoms := make([]model.Signal, symptomCount)
			for i := range symptoms {
				symptoms[i] = symptomSignal(
					propertySymptomTypes[(typeSeed+i)%len(propertySymptomTypes)],
					propertySeverities[(severitySeed+i)%len(propertySeverities)],
				)
			}

			stress := stressLevel
			moods := make([]model.Signal, moodCount)
			for i := range moods {
				moods[i] = moodSignal(propertyMoodTypes[(moodSeed+i)%len(propertyMoodTypes)], &stress)
			}

			activityType := "sedentary"
			if active {
				activityType = "very_active"
			}
			lifestyle := []model.Signal{
				{
					Category: model.SignalCategoryLifestyle,
					Lifestyle: &model.LifestylePayload{
						Sleep:    &model.SleepEntry{Duration: sleepHours},
						Activity: &model.ActivityEntry{Type: activityType},
					},
					RecordedAt: time.Now(),
				},
			}

			signals, scores := setupScoreMocks(symptoms, moods, lifestyle, nil)
			service := NewHealthScoreService(signals, scores, zap.NewNop())

			score, err := service.Recalculate(context.Background(), "patient-1")
			if err != nil {
				t.Logf("Recalculate failed: %v", err)
				return false
			}

			if score.Score < 0 || score.Score > 100 {
				t.Logf("score %d out of range for %d symptoms, %d moods", score.Score, symptomCount, moodCount)
				return false
			}
			if score.Components.SymptomScore < 0 || score.Components.SymptomScore > 100 {
				t.Logf("symptom component %d out of range", score.Components.SymptomScore)
				return false
			}
			return true
		},
		gen.IntRange(0, 12),
		gen.IntRange(0, 12),
		gen.IntRange(0, 7),
		gen.IntRange(0, 2),
		gen.IntRange(0, 4),
		gen.IntRange(1, 10),
		gen.Float64Range(0, 14),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_TrendFollowsFiveBandAgainstPrevious(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Trend direction reflects the five point band around the previous score", prop.ForAll(
		func(previousScore int) bool {
			// With no signals the new score is always 100, so the band check
			// depends only on the previous score
			previous := &model.HealthScore{Score: previousScore}
			signals, scores := setupScoreMocks([]model.Signal{}, []model.Signal{}, []model.Signal{}, previous)
			service := NewHealthScoreService(signals, scores, zap.NewNop())

			score, err := service.Recalculate(context.Background(), "patient-1")
			if err != nil {
				t.Logf("Recalculate failed: %v", err)
				return false
			}

			delta := score.Score - previousScore
			var expected model.TrendDirection
			switch {
			case delta > 5:
				expected = model.TrendImproving
			case delta < -5:
				expected = model.TrendDeclining
			default:
				expected = model.TrendStable
			}

			if score.Trend.Direction != expected {
				t.Logf("previous %d, new %d: expected trend %s, got %s", previousScore, score.Score, expected, score.Trend.Direction)
				return false
			}
			if previousScore > 0 && delta > 0 && score.Trend.PercentageChange <= 0 {
				t.Log("an improving score should report a positive percentage change")
				return false
			}
			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_RecalculationIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("The same signal window always produces the same score", prop.ForAll(
		func(typeSeed, severitySeed, symptomCount int) bool {
			symptoms := make([]model.Signal, symptomCount)
			for i := range symptoms {
				symptoms[i] = symptomSignal(
					propertySymptomTypes[(typeSeed+i)%len(propertySymptomTypes)],
					propertySeverities[(severitySeed+i)%len(propertySeverities)],
				)
			}

			run := func() int {
				signals, scores := setupScoreMocks(symptoms, []model.Signal{}, []model.Signal{}, nil)
				service := NewHealthScoreService(signals, scores, zap.NewNop())
				score, err := service.Recalculate(context.Background(), "patient-1")
				if err != nil {
					t.Logf("Recalculate failed: %v", err)
					return -1
				}
				return score.Score
			}

			first := run()
			second := run()
			return first >= 0 && first == second
		},
		gen.IntRange(0, 7),
		gen.IntRange(0, 2),
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}
