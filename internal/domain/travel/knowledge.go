package travel

// RequiredKey is the top-level knowledge key of the travel domain.
const RequiredKey = "agency_info"

const systemPrompt = "You are an AI assistant for Harjas Travels. Use this context to answer:\n" +
	"{context}\n\n" +
	"Guidelines:\n" +
	"- Be polite and professional\n" +
	"- Only provide information you're confident about\n" +
	"- Offer to connect to human agent if unsure\n" +
	"- Keep responses clear and concise"

func list(items ...string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

// Knowledge returns a fresh copy of the default travel knowledge base.
func Knowledge() map[string]any {
	return map[string]any{
		RequiredKey: map[string]any{
			"name":     "Harjas Travels",
			"location": "1250 King Street West, Toronto, Ontario, Canada",
			"services": list(
				"International flight bookings",
				"South Asian destination specialists",
				"Student travel packages",
				"Family reunion travel planning",
				"Religious pilgrimage tours",
			),
			"popular_countries": list(
				"India", "Pakistan", "United Arab Emirates", "Canada",
				"United States", "United Kingdom", "Australia",
			),
			"payment_methods": list(
				"Visa", "Mastercard", "American Express",
				"Interac e-Transfer", "Bank wire transfer",
			),
			"cancellation_policy": map[string]any{
				"flights": "Subject to airline policies",
				"hotels":  "Free cancellation up to 72 hours before",
				"tours":   "Full refund if cancelled 21+ days prior",
			},
			"hours": map[string]any{
				"monday":    "9:00 AM - 6:00 PM",
				"tuesday":   "9:00 AM - 6:00 PM",
				"wednesday": "9:00 AM - 6:00 PM",
				"thursday":  "9:00 AM - 6:00 PM",
				"friday":    "9:00 AM - 7:00 PM",
				"saturday":  "10:00 AM - 4:00 PM",
				"sunday":    "Closed",
			},
		},
		"faqs": []any{
			map[string]any{
				"question": "What documents do I need for international travel?",
				"answer":   "You'll typically need a valid passport, visa (depending on destination), and any required health documents.",
			},
			map[string]any{
				"question": "Do you offer travel insurance?",
				"answer":   "Yes, we offer comprehensive travel insurance covering medical emergencies, trip cancellation, and lost baggage.",
			},
		},
		"promotions": []any{
			map[string]any{
				"name":    "Early Bird Special",
				"details": "Book 6 months in advance for 15% off selected destinations",
			},
		},
	}
}

var synonyms = map[string][]string{
	"flight":    {"fly", "airline", "plane", "ticket"},
	"cancel":    {"refund", "cancellation", "change"},
	"insur":     {"insurance", "coverage", "medical", "protection"},
	"pay":       {"payment", "card", "credit", "transfer"},
	"hotel":     {"accommodation", "stay", "room"},
	"passport":  {"document", "visa", "requirement"},
	"student":   {"study", "university", "college"},
	"pilgrim":   {"religious", "pilgrimage", "temple"},
	"deal":      {"promotion", "discount", "offer", "special"},
	"where":     {"location", "address", "office"},
	"family":    {"reunion", "relatives", "kids"},
	"early":     {"advance", "bird"},
	"countries": {"destination", "country", "popular"},
}
