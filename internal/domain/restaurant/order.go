package restaurant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
	"github.com/harjas-romana/calling-agent/internal/domain"
	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

type menuItem struct {
	name  string
	price float64
}

// menu reads the orderable dishes from the knowledge base on every call so
// that knowledge updates show up in running conversations.
func menu(src domain.Source) []menuItem {
	var items []menuItem
	for _, d := range knowledge.Items(src.Get(dishesPath)) {
		name := knowledge.String(d["name"])
		if name == "" {
			continue
		}
		price, _ := knowledge.Float(d["price"])
		items = append(items, menuItem{name: name, price: price})
	}
	return items
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func orderTotal(d dialogue.Data) float64 {
	var total float64
	for _, p := range d.List("item_prices") {
		f, err := strconv.ParseFloat(p, 64)
		if err == nil {
			total += f
		}
	}
	return total
}

func orderFlow(src domain.Source) dialogue.Flow {
	return dialogue.Flow{
		Kind: dialogue.KindOrder,
		Steps: []dialogue.Step{
			dialogue.StepTableNumber,
			dialogue.StepItemSelection,
			dialogue.StepSpecialRequests,
			dialogue.StepConfirmOrder,
		},
		Start: func(dialogue.Input) (string, dialogue.Data) {
			var b strings.Builder
			b.WriteString("I'd be happy to take your order. First, could you tell me your table number?\n\n")
			b.WriteString("Our popular dishes today:")
			for _, it := range menu(src) {
				fmt.Fprintf(&b, "\n%s - $%s", it.name, formatPrice(it.price))
			}
			return b.String(), nil
		},
		Handlers: map[dialogue.Step]dialogue.Handler{
			dialogue.StepTableNumber:     tableNumber,
			dialogue.StepItemSelection:   func(in dialogue.Input) dialogue.Outcome { return selectItems(in, menu(src)) },
			dialogue.StepSpecialRequests: specialRequests,
			dialogue.StepConfirmOrder:    confirmOrder,
		},
	}
}

func tableNumber(in dialogue.Input) dialogue.Outcome {
	n, ok := dialogue.ParseNumber(in.Lower)
	if !ok {
		return dialogue.Reprompt("I need your table number. Please say just the number, like 'table five' or 'number seven'.")
	}
	in.Data.SetInt("table_number", n)
	return dialogue.Outcome{
		Reply:  "Great! What would you like to order? You can say multiple items at once.",
		Action: dialogue.Advance,
		Data:   in.Data,
	}
}

const specialRequestsPrompt = "Any special requests or dietary restrictions we should know about?"

func selectItems(in dialogue.Input, items []menuItem) dialogue.Outcome {
	var added []string
	for _, it := range items {
		if strings.Contains(in.Lower, strings.ToLower(it.name)) {
			in.Data.Append("items", it.name)
			in.Data.Append("item_prices", formatPrice(it.price))
			added = append(added, it.name)
		}
	}

	done := dialogue.HasWord(in.Lower, "no", "nope", "that's it", "that's all", "nothing else")
	if len(added) == 0 {
		if done && len(in.Data.List("items")) > 0 {
			return dialogue.Outcome{Reply: specialRequestsPrompt, Action: dialogue.Advance, Data: in.Data}
		}
		return dialogue.Reprompt("I didn't recognize those menu items. Could you please try again or ask to hear our menu?")
	}
	if done {
		return dialogue.Outcome{Reply: specialRequestsPrompt, Action: dialogue.Advance, Data: in.Data}
	}

	return dialogue.Outcome{
		Reply: fmt.Sprintf("I've added %s to your order. Current total: $%.2f\n"+
			"Would you like to add anything else? Please say yes or no.",
			strings.Join(added, ", "), orderTotal(in.Data)),
		Action: dialogue.Stay,
		Data:   in.Data,
	}
}

func specialRequests(in dialogue.Input) dialogue.Outcome {
	in.Data["special_requests"] = in.Text

	var b strings.Builder
	b.WriteString("Let me confirm your order:\n")
	fmt.Fprintf(&b, "Table: %s\n", in.Data["table_number"])
	b.WriteString("Items:\n")
	prices := in.Data.List("item_prices")
	for i, name := range in.Data.List("items") {
		price := ""
		if i < len(prices) {
			price = prices[i]
		}
		fmt.Fprintf(&b, "- %s ($%s)\n", name, price)
	}
	fmt.Fprintf(&b, "Special Requests: %s\n", in.Data["special_requests"])
	fmt.Fprintf(&b, "Total: $%.2f\n\n", orderTotal(in.Data))
	b.WriteString("Should I place this order? Please say yes or no.")

	return dialogue.Outcome{Reply: b.String(), Action: dialogue.Advance, Data: in.Data}
}

func confirmOrder(in dialogue.Input) dialogue.Outcome {
	if dialogue.IsAffirmative(in.Lower, "place") {
		return dialogue.Outcome{
			Reply: fmt.Sprintf("Your order has been placed! Total amount: $%.2f\n"+
				"Your food will be prepared shortly. Is there anything else I can help with today?", orderTotal(in.Data)),
			Action: dialogue.Complete,
		}
	}
	return dialogue.Outcome{
		Reply:  "Let's start over. Could you tell me your table number?",
		Action: dialogue.Restart,
	}
}
