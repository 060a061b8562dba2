package travel

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
)

// spokenDate is how booking dates are read back to the caller.
const spokenDate = "January 02, 2006"

// ReferencePrefix starts every booking reference.
const ReferencePrefix = "HT"

// Reference returns the booking reference for a booking confirmed at t.
func Reference(t time.Time) string {
	return ReferencePrefix + t.Format("20060102150405")
}

func bookingFlow() dialogue.Flow {
	return dialogue.Flow{
		Kind: dialogue.KindBooking,
		Steps: []dialogue.Step{
			dialogue.StepDestination,
			dialogue.StepOrigin,
			dialogue.StepTravelDates,
			dialogue.StepNumTravelers,
			dialogue.StepTravelerNames,
			dialogue.StepContactInfo,
			dialogue.StepEmail,
			dialogue.StepPreferences,
			dialogue.StepConfirm,
		},
		Start: func(dialogue.Input) (string, dialogue.Data) {
			return "Thank you for choosing Harjas Travels! Let's book your trip. " +
				"Where would you like to travel to? Please provide your destination city or country.", nil
		},
		Handlers: map[dialogue.Step]dialogue.Handler{
			dialogue.StepDestination:   destination,
			dialogue.StepOrigin:        origin,
			dialogue.StepTravelDates:   travelDates,
			dialogue.StepNumTravelers:  numTravelers,
			dialogue.StepTravelerNames: travelerNames,
			dialogue.StepContactInfo:   contactPhone,
			dialogue.StepEmail:         email,
			dialogue.StepPreferences:   preferences,
			dialogue.StepConfirm:       confirmBooking,
		},
	}
}

func advance(in dialogue.Input, reply string) dialogue.Outcome {
	return dialogue.Outcome{Reply: reply, Action: dialogue.Advance, Data: in.Data}
}

func destination(in dialogue.Input) dialogue.Outcome {
	if in.Text == "" {
		return dialogue.Reprompt("Where would you like to travel to? Please provide your destination city or country.")
	}
	in.Data["destination"] = in.Text
	return advance(in, fmt.Sprintf("Great! You want to travel to %s. Where will you be departing from?", in.Text))
}

func origin(in dialogue.Input) dialogue.Outcome {
	if in.Text == "" {
		return dialogue.Reprompt("Where will you be departing from?")
	}
	in.Data["origin"] = in.Text
	return advance(in, fmt.Sprintf("You'll be traveling from %s to %s. When would you like to depart, and when will you return? "+
		"Please provide dates like 'June 15 to June 30'.", in.Text, in.Data["destination"]))
}

func travelDates(in dialogue.Input) dialogue.Outcome {
	dates, err := dialogue.ParseDateRange(in.Lower, in.Now)
	switch {
	case errors.Is(err, dialogue.ErrIncompleteRange):
		return dialogue.Reprompt("I need both a departure and return date. Please specify them like 'June 15 to June 30' or 'June 15 - June 30'.")
	case err != nil:
		return dialogue.Reprompt("I couldn't understand those dates. Please provide them in a format like 'June 15 to June 30' or 'next Monday to Friday'.")
	}
	in.Data["departure_date"] = dates[0].Format(time.DateOnly)
	in.Data["return_date"] = dates[1].Format(time.DateOnly)
	return advance(in, fmt.Sprintf("You'll depart on %s and return on %s. How many travelers will be on this trip?",
		dates[0].Format(spokenDate), dates[1].Format(spokenDate)))
}

func numTravelers(in dialogue.Input) dialogue.Outcome {
	n, ok := dialogue.ParseNumber(in.Lower)
	if !ok {
		return dialogue.Reprompt("I need to know how many travelers. Please say just a number, like 'two' or 'four'.")
	}
	in.Data.SetInt("num_travelers", n)
	in.Data.SetList("traveler_names", nil)
	return advance(in, fmt.Sprintf("We'll book for %d travelers. Please provide the full name of traveler 1.", n))
}

func travelerNames(in dialogue.Input) dialogue.Outcome {
	if in.Text == "" {
		return dialogue.Reprompt(fmt.Sprintf("Please provide the full name of traveler %d.", len(in.Data.List("traveler_names"))+1))
	}
	in.Data.Append("traveler_names", in.Text)
	got := len(in.Data.List("traveler_names"))
	want, _ := in.Data.Int("num_travelers")
	if got < want {
		return dialogue.Outcome{
			Reply:  fmt.Sprintf("Thank you. Now please provide the full name of traveler %d.", got+1),
			Action: dialogue.Stay,
			Data:   in.Data,
		}
	}
	return advance(in, "Thank you for providing all traveler names. What's your contact phone number?")
}

func contactPhone(in dialogue.Input) dialogue.Outcome {
	if !dialogue.HasDigit(in.Text) {
		return dialogue.Reprompt("I need a phone number with digits. Please provide a valid phone number.")
	}
	in.Data["contact_phone"] = in.Text
	return advance(in, "Thank you. What's your email address for booking confirmations?")
}

func email(in dialogue.Input) dialogue.Outcome {
	if !strings.Contains(in.Text, "@") || !strings.Contains(in.Text, ".") {
		return dialogue.Reprompt("That doesn't appear to be a valid email address. Please provide an email in the format: name@example.com")
	}
	in.Data["email"] = in.Text
	return advance(in, "Do you have any seating or meal preferences, or any special requests for your flight?")
}

func preferences(in dialogue.Input) dialogue.Outcome {
	in.Data["preferences"] = in.Text
	d := in.Data

	var b strings.Builder
	b.WriteString("Let me confirm your booking details:\n")
	fmt.Fprintf(&b, "Route: %s to %s\n", d["origin"], d["destination"])
	fmt.Fprintf(&b, "Departure: %s\n", d["departure_date"])
	fmt.Fprintf(&b, "Return: %s\n", d["return_date"])
	fmt.Fprintf(&b, "Travelers: %s (%s)\n", d["num_travelers"], strings.Join(d.List("traveler_names"), ", "))
	fmt.Fprintf(&b, "Contact: %s / %s\n", d["contact_phone"], d["email"])
	fmt.Fprintf(&b, "Preferences: %s\n\n", d["preferences"])
	b.WriteString("Is this information correct? Please say yes or no.")
	return advance(in, b.String())
}

func confirmBooking(in dialogue.Input) dialogue.Outcome {
	if !dialogue.IsAffirmative(in.Lower) {
		return dialogue.Outcome{
			Reply:  "Let's start over with your booking. Where would you like to travel to?",
			Action: dialogue.Restart,
		}
	}
	ref := Reference(in.Now)
	in.Data["reference"] = ref
	return dialogue.Outcome{
		Reply: fmt.Sprintf("Your booking is confirmed! Your booking reference number is %s. "+
			"We'll send a confirmation email to %s shortly. "+
			"Would you like to know about our travel insurance options or have any other questions?", ref, in.Data["email"]),
		Action: dialogue.Complete,
		Data:   in.Data,
	}
}
