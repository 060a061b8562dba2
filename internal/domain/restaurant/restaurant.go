// Package restaurant configures the Romana Restaurant assistant: table
// reservations, food orders and the restaurant's fixed replies.
package restaurant

import (
	"fmt"
	"time"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
	"github.com/harjas-romana/calling-agent/internal/domain"
	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

// Name identifies the domain in configuration.
const Name = "restaurant"

const business = "Romana Restaurant"

const (
	dishesPath = RequiredKey + "/popular_dishes"
	hoursPath  = RequiredKey + "/hours"
)

var dailySpecials = map[time.Weekday]string{
	time.Monday:    "Mushroom Risotto with truffle oil and Tiramisu for dessert",
	time.Tuesday:   "Homemade Lasagna with garlic bread and Panna Cotta",
	time.Wednesday: "Seafood Linguine with white wine sauce and Lemon Sorbet",
	time.Thursday:  "Osso Buco with saffron risotto and Cannoli",
	time.Friday:    "Grilled Sea Bass with Mediterranean vegetables and Chocolate Fondant",
	time.Saturday:  "Prime Rib with truffle mashed potatoes and Crème Brûlée",
	time.Sunday:    "Sunday Roast with all the trimmings and Gelato selection",
}

const (
	locationReply = "Romana Restaurant is located at 123 Culinary Avenue, Downtown. " +
		"We're right across from Central Park and just two blocks from the Main Street subway station. " +
		"Free parking is available in our private lot behind the restaurant. " +
		"Would you like me to send directions to your phone?"

	helpReply = "Here are some things you can ask me:\n" +
		"- 'Book a table' or 'Make a reservation'\n" +
		"- 'I'd like to order food'\n" +
		"- 'What are today's specials?'\n" +
		"- 'What are your hours?'\n" +
		"- 'Where are you located?'\n" +
		"- 'I have feedback about my experience'\n" +
		"- Ask any questions about our menu, ingredients, or services!"

	feedbackReply = "Thank you for your feedback! We truly value your opinion. " +
		"Could you share what you enjoyed most about your dining experience today, and if there's anything we could improve?"
)

// Factory returns the restaurant [domain.Factory].
func Factory() domain.Factory {
	return domain.Factory{RequiredKey: RequiredKey, Knowledge: Knowledge, New: New}
}

// New builds the restaurant domain reading menu and hours from src.
func New(src domain.Source) *domain.Domain {
	vocab := []string{business, "Romana", "Pecorino Romano", "Parmigiano", "mascarpone", "arborio"}
	for _, d := range knowledge.Items(src.Get(dishesPath)) {
		vocab = append(vocab, knowledge.String(d["name"]))
	}

	return &domain.Domain{
		Name:         Name,
		Business:     business,
		RequiredKey:  RequiredKey,
		Sections:     []string{RequiredKey},
		SystemPrompt: systemPrompt,
		MaxTokens:    350,
		Intents: []domain.Intent{
			{Name: "reservation", Keywords: []string{"reservation", "book", "table", "reserve"}},
			{Name: "order", Keywords: []string{"order", "menu", "food", "dish", "eat", "hungry"}},
			{Name: "hours", Keywords: []string{"hours", "open", "close", "timing", "schedule"}},
			{Name: "feedback", Keywords: []string{"feedback", "review", "experience", "comment"}},
			{Name: "help", Keywords: []string{"help", "commands", "options", "what can you do"}},
			{Name: "specials", Keywords: []string{"specials", "today", "chef", "recommend", "popular"}},
			{Name: "location", Keywords: []string{"location", "address", "directions", "find"}},
		},
		Starts: map[string]dialogue.Kind{
			"reservation": dialogue.KindReservation,
			"order":       dialogue.KindOrder,
		},
		Fixed: map[string]domain.FixedHandler{
			"hours": func(domain.Request) string {
				hours, _ := src.Get(hoursPath).(map[string]any)
				return domain.HoursReply("Our operating hours are:", hours,
					"Is there a particular day you're planning to visit?")
			},
			"feedback": func(req domain.Request) string {
				domain.LogFeedback(Name, req.Text)
				return feedbackReply
			},
			"help": func(domain.Request) string { return helpReply },
			"specials": func(req domain.Request) string {
				day := req.Now.Weekday()
				return fmt.Sprintf("Today's specials for %s are: %s. "+
					"Our chef personally recommends pairing it with our house wine selection. "+
					"Would you like to include any of these items in your order?", day, dailySpecials[day])
			},
			"location": func(domain.Request) string { return locationReply },
		},
		Flows:      []dialogue.Flow{reservationFlow(), orderFlow(src)},
		Synonyms:   synonyms,
		Vocabulary: vocab,
	}
}
