package travel

import (
	"fmt"
	"strings"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
	"github.com/harjas-romana/calling-agent/internal/domain"
	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

type budgetTier int

const (
	budgetMedium budgetTier = iota
	budgetLow
	budgetHigh
)

func tierOf(budget string) budgetTier {
	switch {
	case strings.Contains(budget, "low"), strings.Contains(budget, "budget"):
		return budgetLow
	case strings.Contains(budget, "high"), strings.Contains(budget, "luxury"):
		return budgetHigh
	default:
		return budgetMedium
	}
}

// tripCategory suggests destinations for one kind of trip, two per budget
// tier.
type tripCategory struct {
	keywords []string
	picks    map[budgetTier][2]string
}

var tripCategories = []tripCategory{
	{
		keywords: []string{"beach", "relax", "resort", "tropical"},
		picks: map[budgetTier][2]string{
			budgetLow: {
				"- Phuket, Thailand: Affordable beach resorts with excellent value",
				"- Goa, India: Beautiful beaches with budget-friendly accommodations",
			},
			budgetHigh: {
				"- Maldives: Exclusive private island resorts with overwater bungalows",
				"- Santorini, Greece: Luxury cliffside accommodations with stunning views",
			},
			budgetMedium: {
				"- Bali, Indonesia: Beautiful beaches with a range of accommodation options",
				"- Cancun, Mexico: All-inclusive resorts with pristine Caribbean beaches",
			},
		},
	},
	{
		keywords: []string{"culture", "history", "museum", "historical"},
		picks: map[budgetTier][2]string{
			budgetLow: {
				"- Hanoi, Vietnam: Rich culture and history with affordable accommodations",
				"- Krakow, Poland: Preserved medieval architecture and museums at reasonable prices",
			},
			budgetHigh: {
				"- Kyoto, Japan: Traditional ryokans and cultural experiences with luxury service",
				"- Rome, Italy: Five-star hotels near ancient ruins and world-class museums",
			},
			budgetMedium: {
				"- Istanbul, Turkey: Where East meets West with stunning historical sites",
				"- Prague, Czech Republic: Well-preserved historical center with reasonable prices",
			},
		},
	},
	{
		keywords: []string{"adventure", "hiking", "trek", "outdoor"},
		picks: map[budgetTier][2]string{
			budgetLow: {
				"- Nepal: World-class trekking with affordable teahouse accommodations",
				"- Colombia: Emerging adventure destination with competitive prices",
			},
			budgetHigh: {
				"- New Zealand: Luxury lodges with private adventure experiences",
				"- Costa Rica: Eco-luxury resorts with private rainforest and wildlife tours",
			},
			budgetMedium: {
				"- Peru: Machu Picchu treks with comfortable accommodations",
				"- South Africa: Safari experiences with mid-range lodging options",
			},
		},
	},
	{
		keywords: []string{"family", "kid", "children"},
		picks: map[budgetTier][2]string{
			budgetLow: {
				"- Orlando, FL: Theme parks with affordable off-site accommodations",
				"- Phuket, Thailand: Family-friendly resorts with excellent value",
			},
			budgetHigh: {
				"- Maldives: Family-friendly luxury resorts with kids clubs and activities",
				"- Switzerland: Luxury family accommodations with outdoor activities",
			},
			budgetMedium: {
				"- Barcelona, Spain: Culture, beaches and family attractions",
				"- Gold Coast, Australia: Theme parks and beaches for all ages",
			},
		},
	},
}

var defaultPicks = []string{
	"- Paris, France: The perfect blend of culture, cuisine, and iconic sights",
	"- Barcelona, Spain: Beautiful architecture, beaches, and vibrant culture",
	"- Tokyo, Japan: Fascinating blend of traditional and ultra-modern experiences",
	"- New York City, USA: World-class attractions, dining, and entertainment",
}

// undecided phrases mark a destination preference that names no place. All
// of them must be present for the preference to be ignored.
var undecided = []string{"not sure", "recommend", "don't know"}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func containsAll(s string, words ...string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

// Recommend builds destination suggestions from the collected consultation
// answers. countries are the agency's popular destinations.
func Recommend(d dialogue.Data, countries []string) string {
	interests := strings.ToLower(d["interests"])
	preference := strings.ToLower(d["destination_preference"])
	tier := tierOf(strings.ToLower(d["budget"]))
	activities := strings.ToLower(d["activities"])

	var recs []string
	for _, c := range tripCategories {
		if containsAny(interests, c.keywords...) {
			p := c.picks[tier]
			recs = append(recs, p[0], p[1])
		}
	}

	if preference != "" && !containsAll(preference, undecided...) {
		for _, country := range countries {
			if country == "" || !strings.Contains(preference, strings.ToLower(country)) {
				continue
			}
			var there []string
			for _, r := range recs {
				if strings.Contains(r, country) {
					there = append(there, r)
				}
			}
			if len(there) > 0 {
				recs = there
			}
			recs = append([]string{fmt.Sprintf("Since you mentioned %s, we highly recommend exploring options there based on your preferences.", country)}, recs...)
			break
		}
	}

	if len(recs) == 0 {
		recs = append(recs, defaultPicks...)
	}
	if containsAny(activities, "food", "cuisine", "dining") {
		recs = append(recs, "For food lovers: Consider a food tour or cooking class in your destination to experience authentic local cuisine.")
	}
	if strings.Contains(activities, "sightseeing") {
		recs = append(recs, "For sightseeing: We recommend booking skip-the-line tickets for major attractions to maximize your time.")
	}
	recs = append(recs, "\nWe can arrange complete packages including flights, accommodations, transfers, and activities tailored to your preferences.")
	return strings.Join(recs, "\n")
}

// collect stores the utterance under key and advances with reply.
func collect(key, reply string) dialogue.Handler {
	return func(in dialogue.Input) dialogue.Outcome {
		in.Data[key] = in.Text
		return advance(in, reply)
	}
}

func consultationFlow(src domain.Source) dialogue.Flow {
	return dialogue.Flow{
		Kind: dialogue.KindConsultation,
		Steps: []dialogue.Step{
			dialogue.StepTravelInterests,
			dialogue.StepDestinations,
			dialogue.StepBudget,
			dialogue.StepTravelDates,
			dialogue.StepTravelers,
			dialogue.StepAccommodation,
			dialogue.StepActivities,
			dialogue.StepContactInfo,
			dialogue.StepSummarize,
		},
		Start: func(dialogue.Input) (string, dialogue.Data) {
			return "I'd be happy to help you plan your perfect trip! To get started, could you tell me what type of travel experience you're interested in? " +
				"For example, beach vacation, cultural tour, adventure trip, family holiday, etc.", nil
		},
		Handlers: map[dialogue.Step]dialogue.Handler{
			dialogue.StepTravelInterests: func(in dialogue.Input) dialogue.Outcome {
				in.Data["interests"] = in.Text
				return advance(in, fmt.Sprintf("Great! A %s sounds wonderful. Do you have any specific destinations in mind, "+
					"or would you like recommendations based on your interests?", in.Text))
			},
			dialogue.StepDestinations: collect("destination_preference",
				"Thank you for sharing that. What's your approximate budget for this trip? This helps us recommend options that match your expectations."),
			dialogue.StepBudget: collect("budget",
				"When are you planning to travel? Do you have specific dates in mind, or are your dates flexible?"),
			dialogue.StepTravelDates: collect("travel_dates",
				"How many people will be traveling? Please let me know if there are any children or seniors in your group."),
			dialogue.StepTravelers: collect("travelers",
				"What type of accommodation do you prefer? For example, luxury hotel, budget-friendly, resort, rental apartment, etc."),
			dialogue.StepAccommodation: collect("accommodation",
				"What activities or experiences are you most interested in during your trip? For example, sightseeing, relaxation, adventure activities, local cuisine, etc."),
			dialogue.StepActivities: collect("activities",
				"Thank you for sharing your preferences. To provide you with personalized recommendations, could I have your name and contact information?"),
			dialogue.StepContactInfo: func(in dialogue.Input) dialogue.Outcome {
				return summarize(in, knowledge.Strings(src.Get(countriesPath)))
			},
			dialogue.StepSummarize: followUp,
		},
	}
}

func summarize(in dialogue.Input, countries []string) dialogue.Outcome {
	in.Data["contact_info"] = in.Text
	d := in.Data
	recs := Recommend(d, countries)
	d["recommendations"] = recs

	var b strings.Builder
	b.WriteString("Based on your preferences:\n")
	fmt.Fprintf(&b, "- Trip type: %s\n", d["interests"])
	fmt.Fprintf(&b, "- Destination interest: %s\n", d["destination_preference"])
	fmt.Fprintf(&b, "- Budget: %s\n", d["budget"])
	fmt.Fprintf(&b, "- Travel dates: %s\n", d["travel_dates"])
	fmt.Fprintf(&b, "- Group: %s\n", d["travelers"])
	fmt.Fprintf(&b, "- Accommodation: %s\n", d["accommodation"])
	fmt.Fprintf(&b, "- Activities: %s\n\n", d["activities"])
	fmt.Fprintf(&b, "Here are my recommendations:\n%s\n\n", recs)
	b.WriteString("Would you like me to email these recommendations to you or would you prefer to speak with one of our travel consultants for more detailed planning?")
	return advance(in, b.String())
}

func followUp(in dialogue.Input) dialogue.Outcome {
	in.Data["follow_up_preference"] = in.Text
	reply := "I'll connect you with one of our expert travel consultants who specializes in your type of trip. " +
		"They'll contact you within 24 hours to discuss your preferences in more detail and help craft your perfect itinerary. " +
		"Is there a preferred time for them to call you?"
	if strings.Contains(in.Lower, "email") || strings.Contains(in.Lower, "send") {
		reply = "Perfect! I'll arrange for these recommendations to be emailed to you shortly. " +
			"Is there anything specific you'd like our travel consultant to focus on when they review your preferences? " +
			"They'll reach out within 24 hours to discuss your trip further."
	}
	return dialogue.Outcome{Reply: reply, Action: dialogue.Complete, Data: in.Data}
}
