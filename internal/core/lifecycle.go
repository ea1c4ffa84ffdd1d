package core

import "github.com/JonMunkholm/invoicebatch/internal/domain"

// ratioEpsilon absorbs float rounding so that exactly threshold*records
// findings still counts as within the threshold.
const ratioEpsilon = 1e-9

// DecideState picks the terminal state of a parsed batch from its finding
// count. No findings is Completed; up to threshold*records findings is
// CompletedWithWarnings; anything more is Error.
func DecideState(findings, records int, threshold float64) domain.BatchState {
	if findings <= 0 {
		return domain.StateCompleted
	}
	if records > 0 && float64(findings) <= threshold*float64(records)+ratioEpsilon {
		return domain.StateCompletedWithWarnings
	}
	return domain.StateError
}
