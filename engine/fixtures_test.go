package engine

import (
	"prism-backend/models"
)

func intPtr(n int) *int { return &n }

// poemDocument is a four-line document with two choices that depend on each other
func poemDocument() models.Document {
	return models.Document{
		Meta: models.DocumentMeta{ID: "jingyesi", Title: "Quiet Night Thought"},
		Source: models.Source{Lines: []models.SourceLine{
			{Text: "床前明月光", Transliteration: "chuáng qián míng yuè guāng"},
			{Text: "疑是地上霜", Transliteration: "yí shì dì shàng shuāng"},
			{Text: "举头望明月", Transliteration: "jǔ tóu wàng míng yuè"},
			{Text: "低头思故乡", Transliteration: "dī tóu sī gù xiāng"},
		}},
		Target: models.Target{
			SurfaceLines: []string{
				"Before my bed, the bright moonlight",
				"I take it for frost upon the ground",
				"I raise my head to gaze at the bright moon",
				"I lower my head and think of home",
			},
			Choices: []models.Choice{
				{
					Line:     0,
					Selected: 0,
					Alternatives: []models.Alternative{
						{
							Text:    "Before my bed, the bright moonlight",
							Weights: map[models.StrategyAxis]float64{models.AxisLiteral: 0.8, models.AxisNatural: 0.5, models.AxisForeignizing: 0.4},
							Chips:   []string{"imagery", "literal order"},
						},
						{
							Text:             "Moonlight pools beside my bed",
							Weights:          map[models.StrategyAxis]float64{models.AxisLiteral: 0.3, models.AxisNatural: 0.9, models.AxisForeignizing: 0.1},
							Chips:            []string{"imagery", "fluid"},
							Bucket:           "domesticated",
							Philosophy:       models.PhilosophyDomesticating,
							SemanticDistance: models.DistanceHigh,
							ReaderCount:      intPtr(412),
						},
					},
					Dependencies: []models.Dependency{{AffectsLine: 2, Delta: -2}},
					Stakes:       "The opening image sets up the moon parallel in line 3.",
				},
				{
					Line:     2,
					Selected: 1,
					Alternatives: []models.Alternative{
						{Text: "Head raised, I watch the moon", Chips: []string{"terse"}},
						{
							Text:             "I raise my head to gaze at the bright moon",
							Weights:          map[models.StrategyAxis]float64{models.AxisLiteral: 0.9},
							Chips:            []string{"parallelism", "literal order"},
							SemanticDistance: models.DistanceLow,
						},
					},
					Dependencies: []models.Dependency{{AffectsLine: 3, Delta: 1.5}},
				},
			},
		},
	}
}

// scenarioDocument is the two-alternative single-choice document used end to end
func scenarioDocument() models.Document {
	return models.Document{
		Target: models.Target{
			SurfaceLines: []string{"A"},
			Choices: []models.Choice{{
				Line:     0,
				Selected: 0,
				Alternatives: []models.Alternative{
					{Text: "A", Weights: map[models.StrategyAxis]float64{models.AxisLiteral: 0.9, models.AxisNatural: 0.1}, Chips: []string{"formal"}},
					{Text: "B", Weights: map[models.StrategyAxis]float64{models.AxisLiteral: 0.1, models.AxisNatural: 0.9}, Chips: []string{"plain"}},
				},
			}},
		},
	}
}
