package restaurant

import (
	"fmt"
	"strings"
	"time"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
)

// Reservations are taken between opening (11 AM) and last seating (10 PM).
const (
	firstSeating = 11 * 60
	lastSeating  = 22 * 60
)

func reservationFlow() dialogue.Flow {
	return dialogue.Flow{
		Kind: dialogue.KindReservation,
		Steps: []dialogue.Step{
			dialogue.StepPartySize,
			dialogue.StepDate,
			dialogue.StepTime,
			dialogue.StepName,
			dialogue.StepPhone,
			dialogue.StepConfirm,
		},
		Start: func(dialogue.Input) (string, dialogue.Data) {
			return "Thank you for choosing Romana Restaurant! Please tell me how many people will be dining with us? Just say a number.", nil
		},
		Handlers: map[dialogue.Step]dialogue.Handler{
			dialogue.StepPartySize: partySize,
			dialogue.StepDate:      reservationDate,
			dialogue.StepTime:      reservationTime,
			dialogue.StepName:      reservationName,
			dialogue.StepPhone:     reservationPhone,
			dialogue.StepConfirm:   confirmReservation,
		},
	}
}

func partySize(in dialogue.Input) dialogue.Outcome {
	n, ok := dialogue.ParseNumber(in.Lower)
	if !ok {
		return dialogue.Reprompt("I need to know how many people will be dining. Please say just a number, like 'four' or 'six'.")
	}
	in.Data.SetInt("party_size", n)
	return dialogue.Outcome{
		Reply:  fmt.Sprintf("Great! We'll reserve for %d people. What date would you like to dine with us? You can say tomorrow, Friday, or a specific date.", n),
		Action: dialogue.Advance,
		Data:   in.Data,
	}
}

func reservationDate(in dialogue.Input) dialogue.Outcome {
	d, ok := dialogue.ParseDate(in.Lower, in.Now)
	if !ok {
		return dialogue.Reprompt("I couldn't understand that date. Please say something like 'tomorrow', 'this Friday', or 'May 20th'.")
	}
	y, m, day := in.Now.Date()
	if d.Before(time.Date(y, m, day, 0, 0, 0, 0, in.Now.Location())) {
		return dialogue.Reprompt("I'm sorry, we can't make reservations for dates in the past. Please choose a future date.")
	}
	in.Data["date"] = d.Format(time.DateOnly)
	return dialogue.Outcome{
		Reply:  "What time would you like to reserve? Our hours are 11AM to 10PM.",
		Action: dialogue.Advance,
		Data:   in.Data,
	}
}

func reservationTime(in dialogue.Input) dialogue.Outcome {
	h, m, ok := dialogue.ParseTime(in.Lower)
	if at := h*60 + m; !ok || at < firstSeating || at > lastSeating {
		return dialogue.Reprompt("Please tell me a valid time between 11AM and 10PM, like 'seven thirty PM' or '12:45 PM'.")
	}
	in.Data["time"] = dialogue.FormatTime(h, m)
	return dialogue.Outcome{
		Reply:  "Perfect! What name should I put the reservation under?",
		Action: dialogue.Advance,
		Data:   in.Data,
	}
}

func reservationName(in dialogue.Input) dialogue.Outcome {
	if in.Text == "" {
		return dialogue.Reprompt("What name should I put the reservation under?")
	}
	in.Data["name"] = in.Text
	return dialogue.Outcome{
		Reply:  "Thank you. Could I also have a contact phone number in case we need to reach you?",
		Action: dialogue.Advance,
		Data:   in.Data,
	}
}

func reservationPhone(in dialogue.Input) dialogue.Outcome {
	if !dialogue.HasDigit(in.Text) {
		return dialogue.Reprompt("I need a phone number with digits. Please provide a valid phone number.")
	}
	in.Data["phone"] = in.Text

	var b strings.Builder
	b.WriteString("Let me confirm your reservation:\n")
	fmt.Fprintf(&b, "Name: %s\n", in.Data["name"])
	fmt.Fprintf(&b, "Phone: %s\n", in.Data["phone"])
	fmt.Fprintf(&b, "Party Size: %s\n", in.Data["party_size"])
	fmt.Fprintf(&b, "Date: %s\n", in.Data["date"])
	fmt.Fprintf(&b, "Time: %s\n\n", in.Data["time"])
	b.WriteString("Is this information correct? Please say yes or no.")

	return dialogue.Outcome{Reply: b.String(), Action: dialogue.Advance, Data: in.Data}
}

func confirmReservation(in dialogue.Input) dialogue.Outcome {
	if dialogue.IsAffirmative(in.Lower) {
		return dialogue.Outcome{
			Reply: "Your reservation is confirmed! We look forward to serving you at Romana Restaurant. " +
				"Do you have any special requests or dietary restrictions we should know about?",
			Action: dialogue.Complete,
		}
	}
	return dialogue.Outcome{
		Reply:  "Let's start over. How many people will be dining with us?",
		Action: dialogue.Restart,
	}
}
