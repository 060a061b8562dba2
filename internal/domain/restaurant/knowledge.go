package restaurant

// RequiredKey is the top-level knowledge key of the restaurant domain.
const RequiredKey = "restaurant_info"

const systemPrompt = "You are an AI assistant for Romana Restaurant, an authentic Italian eatery. " +
	"Use the following context to answer the user's question. Be polite, professional, and helpful.\n\n" +
	"Context:\n{context}\n\n" +
	"Only provide information that is contained in the context or can be directly inferred from it. " +
	"If you don't know the answer, politely say you don't have that information and offer to connect them to a human. " +
	"Keep your answers concise but complete."

func dish(name, description string, price float64, allergens ...string) map[string]any {
	a := make([]any, len(allergens))
	for i, s := range allergens {
		a[i] = s
	}
	return map[string]any{"name": name, "description": description, "price": price, "allergens": a}
}

func faq(q, a string) map[string]any {
	return map[string]any{"question": q, "answer": a}
}

// Knowledge returns a fresh copy of the default restaurant knowledge base.
func Knowledge() map[string]any {
	return map[string]any{
		RequiredKey: map[string]any{
			"name":        "Romana Restaurant",
			"cuisine":     "Italian",
			"description": "Authentic Italian cuisine serving homemade pasta and wood-fired pizzas",
			"location":    "Toronto, Canada",
			"phone":       "(555) 123-4567",
			"email":       "reservations@romanarestaurant.com",
			"website":     "www.romanarestaurant.com",
			"hours": map[string]any{
				"monday":    "11:00 AM - 10:00 PM",
				"tuesday":   "11:00 AM - 10:00 PM",
				"wednesday": "11:00 AM - 10:00 PM",
				"thursday":  "11:00 AM - 10:00 PM",
				"friday":    "11:00 AM - 11:00 PM",
				"saturday":  "10:00 AM - 11:00 PM",
				"sunday":    "10:00 AM - 10:00 PM",
			},
			"popular_dishes": []any{
				dish("Spaghetti Carbonara", "Classic carbonara with pancetta, egg, black pepper, and Pecorino Romano", 16.99, "gluten", "dairy", "eggs"),
				dish("Margherita Pizza", "Traditional pizza with San Marzano tomatoes, fresh mozzarella, and basil", 14.99, "gluten", "dairy"),
				dish("Lasagna Bolognese", "Layered pasta with beef ragù, béchamel sauce, and Parmigiano", 18.99, "gluten", "dairy", "eggs"),
				dish("Tiramisu", "Classic Italian dessert with espresso-soaked ladyfingers and mascarpone", 9.99, "gluten", "dairy", "eggs"),
				dish("Risotto al Funghi", "Creamy arborio rice with wild mushrooms and Parmigiano", 17.99, "dairy"),
			},
			"specials": map[string]any{
				"monday":    "20% off all pasta dishes",
				"tuesday":   "Wine pairing special - half-price wine by the glass",
				"wednesday": "Family meal deal - 4 people eat for $60",
				"thursday":  "Date night package - 3-course meal for two $65",
				"friday":    "Happy hour 4-6 PM - $5 appetizers and drinks",
			},
			"policies": map[string]any{
				"reservations":  "Reservations recommended, especially on weekends",
				"cancellations": "24-hour cancellation policy",
				"dress_code":    "Business casual",
				"parking":       "Valet available for $10, street parking also available",
				"pets":          "Service animals only",
				"payment":       "We accept all major credit cards, no checks",
			},
			"dietary_accommodations": map[string]any{
				"gluten_free": true,
				"vegetarian":  true,
				"vegan":       true,
				"dairy_free":  true,
				"nut_free":    true,
			},
		},
		"menu_categories": []any{"Appetizers", "Pasta", "Pizza", "Main Courses", "Desserts", "Beverages"},
		"faqs": []any{
			faq("Do you offer gluten-free options?", "Yes, we have gluten-free pasta and pizza crust available for an additional $2."),
			faq("Is there a kids' menu?", "Yes, we offer a children's menu with smaller portions priced at $9.99, including a drink and dessert."),
			faq("Can you accommodate food allergies?", "Yes, please inform your server of any allergies when ordering. Our kitchen can accommodate most dietary restrictions."),
			faq("Do you have outdoor seating?", "Yes, we have a beautiful patio that's open seasonally, weather permitting."),
			faq("Do you take reservations?", "Yes, we recommend reservations, especially for weekend dining. You can book online or call us at (555) 123-4567."),
			faq("Is there a corkage fee?", "Yes, we allow outside wine with a $25 corkage fee per bottle."),
		},
	}
}

// synonyms expand retrieval queries with related knowledge terms.
var synonyms = map[string][]string{
	"hour":        {"hours", "open", "closing", "schedule", "time"},
	"reservation": {"book", "booking", "reserve", "table"},
	"menu":        {"food", "dish", "dishes", "eat", "cuisine"},
	"price":       {"cost", "expensive", "cheap", "affordable"},
	"allerg":      {"allergic", "allergen", "allergy"},
	"vegetarian":  {"vegan", "plant", "meat"},
	"park":        {"parking", "valet", "car"},
	"kid":         {"child", "children", "family", "baby"},
	"gluten":      {"celiac", "wheat", "pasta"},
	"special":     {"deal", "discount", "offer", "promotion"},
	"dessert":     {"sweet", "cake", "ice cream", "tiramisu"},
	"wine":        {"alcohol", "drink", "beverage"},
	"pizza":       {"pie", "margherita", "pepperoni"},
}
