package facematch

import (
	"math"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/enrollment"
)

// AdaptiveThreshold returns the acceptance threshold for userID.
// Unknown users get the global threshold.
func AdaptiveThreshold(snap *enrollment.Snapshot, userID string) float64 {
	global := snap.Settings().AccuracyThreshold
	p, ok := snap.Profile(userID)
	if !ok {
		return global
	}
	return ThresholdFor(global, len(p.Samples), p.AverageConfidence())
}

// ThresholdFor lowers the global threshold for users with more samples and
// higher average enrollment confidence, never below the floor.
func ThresholdFor(global float64, sampleCount int, avgConfidence float64) float64 {
	sampleBonus := math.Min(float64(sampleCount)/constants.SampleBonusDivisor, constants.MaxSampleBonus)
	confidenceBonus := math.Max(avgConfidence-constants.ConfidenceBaseline, 0) * constants.ConfidenceBonusFactor
	return math.Max(global-sampleBonus-confidenceBonus, constants.ThresholdFloor)
}

// Decision is the outcome of comparing a match against its user's threshold.
type Decision struct {
	UserID        string  `json:"user_id"`
	Score         float64 `json:"score"`
	Threshold     float64 `json:"threshold"`
	Enrolled      bool    `json:"enrolled"`
	Authenticated bool    `json:"authenticated"`
}

// Decide accepts the match iff its score reaches the user's adaptive threshold.
func Decide(snap *enrollment.Snapshot, m Match) Decision {
	threshold := AdaptiveThreshold(snap, m.UserID)
	return Decision{
		UserID:        m.UserID,
		Score:         m.Score,
		Threshold:     threshold,
		Enrolled:      snap.IsEnrolled(m.UserID),
		Authenticated: m.Score >= threshold,
	}
}
