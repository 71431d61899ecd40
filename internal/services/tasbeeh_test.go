package services

import (
	"testing"

	"sciencebindu-backend/internal/models"
)

func TestCosmicTasbeeh(t *testing.T) {
	tests := []struct {
		seconds int
		want    models.TasbeehFigures
	}{
		{0, models.TasbeehFigures{}},
		{1, models.TasbeehFigures{Seconds: 1, LightKm: 299792, Heartbeats: 1, EarthRotationKm: 0.46}},
		{33, models.TasbeehFigures{Seconds: 33, LightKm: 9893136, Heartbeats: 39, EarthRotationKm: 15.18}},
		{60, models.TasbeehFigures{Seconds: 60, LightKm: 17987520, Heartbeats: 72, EarthRotationKm: 27.6}},
		{MaxTasbeehSeconds, models.TasbeehFigures{Seconds: 86400, LightKm: 25902028800, Heartbeats: 103680, EarthRotationKm: 39744}},
	}
	for _, tc := range tests {
		if got := CosmicTasbeeh(tc.seconds); got != tc.want {
			t.Fatalf("CosmicTasbeeh(%d) = %+v, want %+v", tc.seconds, got, tc.want)
		}
	}
}
