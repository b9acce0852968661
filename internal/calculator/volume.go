package calculator

import (
	"fmt"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// VolumeLookback is the number of prior sessions averaged for the volume ratio.
const VolumeLookback = 5

// VolumeRatio divides the last bar's volume by the mean volume of the
// previous five bars. A provisional bar's volume is first projected to a
// full session using its SessionProgress.
func VolumeRatio(bars []model.DailyBar) (float64, error) {
	if len(bars) < VolumeLookback+1 {
		return 0, apperrors.NewInsufficientHistory(model.IndVolume, VolumeLookback+1, len(bars))
	}
	n := len(bars) - 1
	avg, _ := SMA(volumes(bars[:n]), VolumeLookback)
	if avg <= 0 {
		return 0, fmt.Errorf("zero average volume: %w", apperrors.ErrInvalidData)
	}
	return ProjectedVolume(bars[n]) / avg, nil
}

// ProjectedVolume scales a provisional bar's partial volume to a full session.
func ProjectedVolume(b model.DailyBar) float64 {
	if b.Provisional && b.SessionProgress > 0 && b.SessionProgress < 1 {
		return b.Volume / b.SessionProgress
	}
	return b.Volume
}
