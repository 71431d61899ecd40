package services

import (
	"math"

	"sciencebindu-backend/internal/models"
)

const (
	lightKmPerSecond    = 299792
	heartbeatsPerSecond = 1.2 // resting pulse of 72 bpm
	equatorKmPerSecond  = 0.46
	MaxTasbeehSeconds   = 24 * 60 * 60
)

// CosmicTasbeeh reports how far light travelled, how often a resting heart beat
// and how far the equator turned during a tasbeeh session of the given length.
func CosmicTasbeeh(seconds int) models.TasbeehFigures {
	return models.TasbeehFigures{
		Seconds:         seconds,
		LightKm:         int64(seconds) * lightKmPerSecond,
		Heartbeats:      int(math.Floor(float64(seconds) * heartbeatsPerSecond)),
		EarthRotationKm: math.Round(float64(seconds)*equatorKmPerSecond*100) / 100,
	}
}
