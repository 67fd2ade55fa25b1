package domain

import "math"

// AvailabilityStatus is the user-facing projection of a capacity record.
// It is derived state: never stored as a write-path precondition.
type AvailabilityStatus string

const (
	StatusAvailable AvailabilityStatus = "AVAILABLE"
	StatusLimited   AvailabilityStatus = "LIMITED"
	StatusFull      AvailabilityStatus = "FULL"
	StatusClosed    AvailabilityStatus = "CLOSED"
)

// Availability is what callers outside the engine may see. Raw counts stay
// inside the trust boundary.
type Availability struct {
	IsFull                 bool
	FreeSlotsAvailable     bool
	AdvancedSlotsAvailable bool
	Status                 AvailabilityStatus
}

// Evaluate derives availability from a record's counts. Pure and
// deterministic; CLOSED is an administrative override applied by the
// caller, not derivable from counts.
func Evaluate(record CapacityRecord, warningRatio float64) Availability {
	isFull := record.TotalCount >= record.MaxCapacity

	availability := Availability{
		IsFull:                 isFull,
		FreeSlotsAvailable:     record.FreeCount < record.FreeLimit && !isFull,
		AdvancedSlotsAvailable: !isFull,
		Status:                 StatusAvailable,
	}

	switch {
	case isFull:
		availability.Status = StatusFull
	case record.TotalCount >= warningThreshold(record.MaxCapacity, warningRatio):
		availability.Status = StatusLimited
	}

	return availability
}

func warningThreshold(maxCapacity int, ratio float64) int {
	if ratio <= 0 || ratio > 1 {
		ratio = 0.8
	}
	return int(math.Ceil(float64(maxCapacity) * ratio))
}
