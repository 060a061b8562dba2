// Package travel configures the Harjas Travels assistant: trip bookings,
// travel consultations and the agency's fixed replies.
package travel

import (
	"fmt"
	"strings"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
	"github.com/harjas-romana/calling-agent/internal/domain"
	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

// Name identifies the domain in configuration.
const Name = "travel"

const business = "Harjas Travels"

const (
	countriesPath  = RequiredKey + "/popular_countries"
	hoursPath      = RequiredKey + "/hours"
	promotionsPath = "promotions"
)

const (
	feedbackReply = "Thank you for taking the time to share your feedback with Harjas Travels. " +
		"Your input helps us improve our services. Could you tell me more about your experience with us? " +
		"What did you enjoy most, and is there anything we could improve?"

	changesReply = "I understand you'd like to make changes to your booking. " +
		"To proceed, I'll need your booking reference number. " +
		"Alternatively, I can look up your booking using your full name and travel dates. " +
		"Please note that changes and cancellations are subject to our policies and may incur fees " +
		"depending on your fare type and the airline's rules."

	genericRequirements = "For international travel, you'll typically need:\n" +
		"1. A valid passport (usually valid for at least 6 months beyond your stay)\n" +
		"2. Visas or travel authorizations (requirements vary by destination and your citizenship)\n" +
		"3. Return or onward travel tickets\n" +
		"4. Travel insurance (highly recommended and sometimes mandatory)\n" +
		"5. Vaccination certificates (for certain destinations)\n\n" +
		"Which country are you planning to visit? I can provide more specific information based on your destination."

	noPromotions = "While we don't have any public promotions at the moment, we do offer personalized deals " +
		"based on your travel preferences. Our partnerships with airlines and hotels allow us to create " +
		"custom packages with special pricing. Where are you interested in traveling to? " +
		"I'd be happy to check for any unadvertised deals for that destination."

	helpReply = "Here are some things you can ask me about Harjas Travels:\n" +
		"- 'Book a flight' or 'I need to travel to [destination]'\n" +
		"- 'I need travel advice' or 'Help me plan a trip'\n" +
		"- 'What promotions do you have?'\n" +
		"- 'What are your business hours?'\n" +
		"- 'What documents do I need for international travel?'\n" +
		"- 'I need to change/cancel my booking'\n" +
		"- 'Do you offer travel insurance?'\n" +
		"- 'I have feedback about your service'\n" +
		"- Ask any questions about destinations, travel requirements, or our services!"
)

// Factory returns the travel [domain.Factory].
func Factory() domain.Factory {
	return domain.Factory{RequiredKey: RequiredKey, Knowledge: Knowledge, New: New}
}

// New builds the travel domain reading countries, hours and promotions
// from src.
func New(src domain.Source) *domain.Domain {
	vocab := []string{business, "Harjas"}
	vocab = append(vocab, knowledge.Strings(src.Get(countriesPath))...)

	return &domain.Domain{
		Name:         Name,
		Business:     business,
		RequiredKey:  RequiredKey,
		Sections:     []string{RequiredKey, promotionsPath},
		SystemPrompt: systemPrompt,
		MaxTokens:    500,
		Intents: []domain.Intent{
			{Name: "booking", Keywords: []string{"book", "flight", "ticket", "reservation", "travel", "trip"}},
			{Name: "consultation", Keywords: []string{"consult", "consultation", "advice", "recommend", "suggestion"}},
			{Name: "hours", Keywords: []string{"hours", "open", "close", "timing", "schedule"}},
			{Name: "feedback", Keywords: []string{"feedback", "review", "experience", "comment"}},
			{Name: "help", Keywords: []string{"help", "commands", "options", "what can you do"}},
			{Name: "promotions", Keywords: []string{"promotion", "deal", "special", "discount", "offer"}},
			{Name: "requirements", Keywords: []string{"document", "passport", "visa", "requirement"}},
			{Name: "changes", Keywords: []string{"cancel", "refund", "change", "reschedule"}},
		},
		Starts: map[string]dialogue.Kind{
			"booking":      dialogue.KindBooking,
			"consultation": dialogue.KindConsultation,
		},
		Fixed: map[string]domain.FixedHandler{
			"hours": func(domain.Request) string {
				hours, _ := src.Get(hoursPath).(map[string]any)
				return domain.HoursReply("Harjas Travels operating hours are:", hours,
					"How can I assist you with your travel needs today?")
			},
			"feedback": func(req domain.Request) string {
				domain.LogFeedback(Name, req.Text)
				return feedbackReply
			},
			"help":         func(domain.Request) string { return helpReply },
			"promotions":   func(domain.Request) string { return promotions(src) },
			"requirements": func(req domain.Request) string { return requirements(src, req.Lower) },
			"changes":      func(domain.Request) string { return changesReply },
		},
		Flows:      []dialogue.Flow{bookingFlow(), consultationFlow(src)},
		Synonyms:   synonyms,
		Vocabulary: vocab,
	}
}

// mentionedCountry returns the first popular country named in lower.
func mentionedCountry(src domain.Source, lower string) (string, bool) {
	for _, c := range knowledge.Strings(src.Get(countriesPath)) {
		if c != "" && strings.Contains(lower, strings.ToLower(c)) {
			return c, true
		}
	}
	return "", false
}

func requirements(src domain.Source, lower string) string {
	c, ok := mentionedCountry(src, lower)
	if !ok {
		return genericRequirements
	}
	return fmt.Sprintf("For travel to %[1]s, you'll typically need:\n"+
		"1. A passport valid for at least 6 months beyond your stay\n"+
		"2. Visa requirements vary based on your citizenship\n"+
		"3. Return or onward tickets\n"+
		"4. Proof of sufficient funds\n\n"+
		"For the most up-to-date and specific requirements based on your citizenship, "+
		"I recommend checking the official government website or consulate of %[1]s. "+
		"Would you like me to check specific visa requirements based on your nationality?", c)
}

func promotions(src domain.Source) string {
	promos := knowledge.Items(src.Get(promotionsPath))
	if len(promos) == 0 {
		return noPromotions
	}
	var b strings.Builder
	b.WriteString("Here are our current promotions at Harjas Travels:\n")
	for _, p := range promos {
		fmt.Fprintf(&b, "- %s: %s\n", knowledge.String(p["name"]), knowledge.String(p["details"]))
	}
	b.WriteString("\nWe also have exclusive deals with certain airlines and hotels that aren't advertised. ")
	b.WriteString("Would you like to hear about destination-specific offers or would you like to book a trip taking advantage of these promotions?")
	return b.String()
}
