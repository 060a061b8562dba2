package dialogue

import "fmt"

// Step names one slot-filling state. The zero value [StepNone] means "no
// active step"; every other value belongs to exactly one [Flow].
type Step uint8

const (
	StepNone Step = iota

	// Restaurant reservation.
	StepPartySize
	StepDate
	StepTime
	StepName
	StepPhone
	StepConfirm

	// Restaurant food order.
	StepTableNumber
	StepItemSelection
	StepSpecialRequests
	StepConfirmOrder

	// Travel booking. StepConfirm closes this flow too.
	StepDestination
	StepOrigin
	StepTravelDates
	StepNumTravelers
	StepTravelerNames
	StepContactInfo
	StepEmail
	StepPreferences

	// Travel consultation. StepTravelDates and StepContactInfo are shared
	// with booking.
	StepTravelInterests
	StepDestinations
	StepBudget
	StepTravelers
	StepAccommodation
	StepActivities
	StepSummarize

	stepCount
)

var stepNames = [stepCount]string{
	StepNone:            "",
	StepPartySize:       "party_size",
	StepDate:            "date",
	StepTime:            "time",
	StepName:            "name",
	StepPhone:           "phone",
	StepConfirm:         "confirm",
	StepTableNumber:     "table_number",
	StepItemSelection:   "item_selection",
	StepSpecialRequests: "special_requests",
	StepConfirmOrder:    "confirm_order",
	StepDestination:     "destination",
	StepOrigin:          "origin",
	StepTravelDates:     "travel_dates",
	StepNumTravelers:    "num_travelers",
	StepTravelerNames:   "traveler_names",
	StepContactInfo:     "contact_info",
	StepEmail:           "email",
	StepPreferences:     "preferences",
	StepTravelInterests: "travel_interests",
	StepDestinations:    "destinations",
	StepBudget:          "budget",
	StepTravelers:       "travelers",
	StepAccommodation:   "accommodation",
	StepActivities:      "activities",
	StepSummarize:       "summarize",
}

func (s Step) String() string {
	if s < stepCount {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", uint8(s))
}

// Valid reports whether s is a defined step other than [StepNone].
func (s Step) Valid() bool {
	return s > StepNone && s < stepCount
}

// ParseStep returns the step called name. The empty name is [StepNone].
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return StepNone, fmt.Errorf("dialogue: unknown step %q", name)
}

// MarshalText encodes the step as its name.
func (s Step) MarshalText() ([]byte, error) {
	if s >= stepCount {
		return nil, fmt.Errorf("dialogue: invalid step %d", uint8(s))
	}
	return []byte(stepNames[s]), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(b []byte) error {
	v, err := ParseStep(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Kind identifies a multi-turn transaction type.
type Kind string

const (
	KindReservation  Kind = "reservation"
	KindOrder        Kind = "order"
	KindBooking      Kind = "booking"
	KindConsultation Kind = "consultation"
)
