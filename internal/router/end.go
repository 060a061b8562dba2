package router

import (
	"fmt"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
)

var endPhrases = []string{"goodbye", "bye", "stop", "quit", "exit", "end call", "hang up"}

// IsEndOfConversation reports whether text asks to end the call. The calling
// layer checks this before routing.
func IsEndOfConversation(text string) bool {
	return dialogue.HasWord(text, endPhrases...)
}

// Greeting is the opening line spoken for business.
func Greeting(business string) string {
	return fmt.Sprintf("Hello! Welcome to %s. How may I help you today?", business)
}

// Farewell is the closing line spoken for business.
func Farewell(business string) string {
	return fmt.Sprintf("Thank you for calling %s. Goodbye!", business)
}
