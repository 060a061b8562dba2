package restaurant_test

import (
	"strings"
	"testing"
	"time"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
	"github.com/harjas-romana/calling-agent/internal/domain"
	"github.com/harjas-romana/calling-agent/internal/domain/restaurant"
	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

// Wednesday 2025-05-14, 10:30 UTC.
var now = time.Date(2025, time.May, 14, 10, 30, 0, 0, time.UTC)

func newDomain(t *testing.T) (*domain.Domain, *dialogue.Engine) {
	t.Helper()
	store := knowledge.New(restaurant.RequiredKey, restaurant.Knowledge())
	d := restaurant.New(store)
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	eng, err := dialogue.NewEngine(d.Flows...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return d, eng
}

// converse starts a session of kind and feeds it each utterance, returning
// the final session and the reply to the last utterance.
func converse(t *testing.T, eng *dialogue.Engine, kind dialogue.Kind, turns ...string) (dialogue.Session, string) {
	t.Helper()
	sess, reply, err := eng.Start(kind, "", now)
	if err != nil {
		t.Fatalf("Start(%s): %v", kind, err)
	}
	for _, text := range turns {
		sess, reply, err = eng.Handle(sess, text, now)
		if err != nil {
			t.Fatalf("Handle(%q): %v", text, err)
		}
	}
	return sess, reply
}

func TestMatch(t *testing.T) {
	t.Parallel()
	d, _ := newDomain(t)

	tests := []struct {
		text string
		want string
	}{
		{"I'd like to book a table for tonight", "reservation"},
		{"I'd like to order food", "order"},
		{"What are your hours on Sunday?", "hours"},
		{"I want to leave some feedback", "feedback"},
		{"what can you do", "help"},
		{"What are today's specials?", "specials"},
		{"What's your address?", "location"},
		{"Do you have gluten-free pasta?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, ok := d.Match(tt.text)
			if tt.want == "" {
				if ok {
					t.Errorf("Match(%q) = %q, want no match", tt.text, got.Name)
				}
				return
			}
			if !ok || got.Name != tt.want {
				t.Errorf("Match(%q) = %q, %v; want %q", tt.text, got.Name, ok, tt.want)
			}
		})
	}
}

func TestFixedReplies(t *testing.T) {
	t.Parallel()
	d, _ := newDomain(t)
	req := domain.Request{Now: now}

	hours := d.Fixed["hours"](req)
	if !strings.HasPrefix(hours, "Our operating hours are:\nMonday: 11:00 AM - 10:00 PM") {
		t.Errorf("hours reply = %q", hours)
	}
	if !strings.HasSuffix(hours, "\nSunday: 10:00 AM - 10:00 PM\n\nIs there a particular day you're planning to visit?") {
		t.Errorf("hours reply ending = %q", hours)
	}

	specials := d.Fixed["specials"](req)
	if !strings.HasPrefix(specials, "Today's specials for Wednesday are: Seafood Linguine with white wine sauce and Lemon Sorbet.") {
		t.Errorf("specials reply = %q", specials)
	}

	if got := d.Fixed["location"](req); !strings.Contains(got, "123 Culinary Avenue") {
		t.Errorf("location reply = %q", got)
	}
	if got := d.Fixed["help"](req); !strings.HasPrefix(got, "Here are some things you can ask me:\n- 'Book a table'") {
		t.Errorf("help reply = %q", got)
	}
	if got := d.Fixed["feedback"](domain.Request{Text: "great pasta", Lower: "great pasta", Now: now}); !strings.HasPrefix(got, "Thank you for your feedback!") {
		t.Errorf("feedback reply = %q", got)
	}
}

func TestVocabularyIncludesDishes(t *testing.T) {
	t.Parallel()
	d, _ := newDomain(t)
	want := map[string]bool{"Romana Restaurant": false, "Spaghetti Carbonara": false, "Risotto al Funghi": false}
	for _, v := range d.Vocabulary {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("vocabulary missing %q", name)
		}
	}
}

func TestReservationFlow(t *testing.T) {
	t.Parallel()
	_, eng := newDomain(t)

	sess, reply := converse(t, eng, dialogue.KindReservation,
		"four people", "tomorrow", "seven thirty pm", "Ana Silva", "555 123 9876")
	if sess.Step != dialogue.StepConfirm {
		t.Fatalf("step = %s, want confirm", sess.Step)
	}
	want := "Let me confirm your reservation:\nName: Ana Silva\nPhone: 555 123 9876\nParty Size: 4\n" +
		"Date: 2025-05-15\nTime: 07:30 PM\n\nIs this information correct? Please say yes or no."
	if reply != want {
		t.Errorf("confirm prompt = %q\nwant %q", reply, want)
	}

	done, reply, err := eng.Handle(sess, "yes that's right", now)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Completed {
		t.Error("session not completed after yes")
	}
	if !strings.HasPrefix(reply, "Your reservation is confirmed!") {
		t.Errorf("reply = %q", reply)
	}
	if done.Data["name"] != "Ana Silva" {
		t.Errorf("data kept on completion = %v", done.Data)
	}

	restarted, reply, err := eng.Handle(sess, "no, the time is wrong", now)
	if err != nil {
		t.Fatal(err)
	}
	if restarted.Step != dialogue.StepPartySize || len(restarted.Data) != 0 {
		t.Errorf("after no: step %s data %v, want party_size and empty", restarted.Step, restarted.Data)
	}
	if reply != "Let's start over. How many people will be dining with us?" {
		t.Errorf("restart reply = %q", reply)
	}
}

func TestReservationReprompts(t *testing.T) {
	t.Parallel()
	_, eng := newDomain(t)

	tests := []struct {
		name  string
		turns []string
		step  dialogue.Step
		reply string
	}{
		{
			name:  "party size without number",
			turns: []string{"a few of us"},
			step:  dialogue.StepPartySize,
			reply: "I need to know how many people will be dining. Please say just a number, like 'four' or 'six'.",
		},
		{
			name:  "unparseable date",
			turns: []string{"2", "whenever"},
			step:  dialogue.StepDate,
			reply: "I couldn't understand that date. Please say something like 'tomorrow', 'this Friday', or 'May 20th'.",
		},
		{
			name:  "past date",
			turns: []string{"2", "2025-05-01"},
			step:  dialogue.StepDate,
			reply: "I'm sorry, we can't make reservations for dates in the past. Please choose a future date.",
		},
		{
			name:  "time before opening",
			turns: []string{"2", "friday", "9 am"},
			step:  dialogue.StepTime,
			reply: "Please tell me a valid time between 11AM and 10PM, like 'seven thirty PM' or '12:45 PM'.",
		},
		{
			name:  "phone without digits",
			turns: []string{"2", "friday", "noon", "Bo", "call me maybe"},
			step:  dialogue.StepPhone,
			reply: "I need a phone number with digits. Please provide a valid phone number.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess, reply := converse(t, eng, dialogue.KindReservation, tt.turns...)
			if sess.Step != tt.step {
				t.Errorf("step = %s, want %s", sess.Step, tt.step)
			}
			if reply != tt.reply {
				t.Errorf("reply = %q, want %q", reply, tt.reply)
			}
		})
	}
}

func TestOrderFlow(t *testing.T) {
	t.Parallel()
	_, eng := newDomain(t)

	sess, opening, err := eng.Start(dialogue.KindOrder, "I'd like to order food", now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(opening, "\nSpaghetti Carbonara - $16.99") {
		t.Errorf("opening menu = %q", opening)
	}

	sess, reply, _ := eng.Handle(sess, "table five", now)
	if sess.Step != dialogue.StepItemSelection || sess.Data["table_number"] != "5" {
		t.Fatalf("after table: step %s data %v", sess.Step, sess.Data)
	}
	if reply != "Great! What would you like to order? You can say multiple items at once." {
		t.Errorf("reply = %q", reply)
	}

	sess, reply, _ = eng.Handle(sess, "garlic knots please", now)
	if sess.Step != dialogue.StepItemSelection {
		t.Errorf("unknown item moved to %s", sess.Step)
	}
	if !strings.HasPrefix(reply, "I didn't recognize those menu items.") {
		t.Errorf("reply = %q", reply)
	}

	sess, reply, _ = eng.Handle(sess, "a margherita pizza and the tiramisu", now)
	want := "I've added Margherita Pizza, Tiramisu to your order. Current total: $24.98\n" +
		"Would you like to add anything else? Please say yes or no."
	if reply != want {
		t.Errorf("reply = %q\nwant %q", reply, want)
	}

	sess, reply, _ = eng.Handle(sess, "no that's all", now)
	if sess.Step != dialogue.StepSpecialRequests {
		t.Fatalf("step = %s, want special_requests", sess.Step)
	}
	if reply != "Any special requests or dietary restrictions we should know about?" {
		t.Errorf("reply = %q", reply)
	}

	sess, reply, _ = eng.Handle(sess, "extra basil", now)
	want = "Let me confirm your order:\nTable: 5\nItems:\n- Margherita Pizza ($14.99)\n- Tiramisu ($9.99)\n" +
		"Special Requests: extra basil\nTotal: $24.98\n\nShould I place this order? Please say yes or no."
	if reply != want {
		t.Errorf("summary = %q\nwant %q", reply, want)
	}

	done, reply, _ := eng.Handle(sess, "yes place it", now)
	if !done.Completed {
		t.Error("order not completed")
	}
	if !strings.HasPrefix(reply, "Your order has been placed! Total amount: $24.98\n") {
		t.Errorf("reply = %q", reply)
	}

	again, reply, _ := eng.Handle(sess, "no", now)
	if again.Step != dialogue.StepTableNumber || len(again.Data) != 0 {
		t.Errorf("after no: step %s data %v", again.Step, again.Data)
	}
	if reply != "Let's start over. Could you tell me your table number?" {
		t.Errorf("restart reply = %q", reply)
	}
}

func TestOrderNoItemsCannotFinish(t *testing.T) {
	t.Parallel()
	_, eng := newDomain(t)

	sess, _ := converse(t, eng, dialogue.KindOrder, "7", "no")
	if sess.Step != dialogue.StepItemSelection {
		t.Errorf("empty order advanced to %s", sess.Step)
	}
}

func TestOrderMenuFollowsKnowledgeUpdates(t *testing.T) {
	t.Parallel()
	store := knowledge.New(restaurant.RequiredKey, restaurant.Knowledge())
	d := restaurant.New(store)
	eng, err := dialogue.NewEngine(d.Flows...)
	if err != nil {
		t.Fatal(err)
	}

	dishes := []any{map[string]any{"name": "Osso Buco", "price": 29.5}}
	if err := store.Update(dishes, restaurant.RequiredKey+"/popular_dishes", false); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sess, opening, err := eng.Start(dialogue.KindOrder, "", now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(opening, "Our popular dishes today:\nOsso Buco - $29.5") {
		t.Errorf("opening = %q", opening)
	}
	sess, _, _ = eng.Handle(sess, "3", now)
	_, reply, _ := eng.Handle(sess, "osso buco", now)
	if !strings.Contains(reply, "Current total: $29.50") {
		t.Errorf("reply = %q", reply)
	}
}
