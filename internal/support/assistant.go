package support

import (
	"strings"
	"unicode"
)

type intent struct {
	keywords []string
	answer   string
}

const waitForConfirmation = "Kindly wait for 2 hours while we confirm your payment."

var intents = []intent{
	{
		keywords: []string{"payment not received", "add funds not received", "money not received", "funds not showing",
			"coins not added", "transaction not reflected", "payment pending", "not credited"},
		answer: waitForConfirmation,
	},
	{
		keywords: []string{"withdrawal not received", "withdraw not received", "withdrawal pending",
			"money not withdrawn", "withdrawal not processed"},
		answer: waitForConfirmation,
	},
	{
		keywords: []string{"how to login", "how do i login", "login help", "cannot login", "login issue", "sign in"},
		answer:   "Sign in with your registered phone number or CTR code and your PIN. If you forgot your PIN, write to us here and an admin will help.",
	},
	{
		keywords: []string{"connect ctr", "ctr connection", "register ctr", "ctr id", "ctr code"},
		answer:   "Open your profile and link your CTR code. Each CTR code can be linked to one account only.",
	},
	{
		keywords: []string{"how to add funds", "add money", "buy coins", "purchase coins", "how to pay", "payment method"},
		answer: "To add funds pick a coin package, pay the exact amount over UPI, upload the receipt and submit the transaction id " +
			"with your 12 digit UTR. Coins are added once an admin confirms the payment.",
	},
	{
		keywords: []string{"how to withdraw", "withdraw money", "cash out", "withdrawal process", "get money"},
		answer: "Enter the amount and request a withdrawal. You need enough balance, the minimum is 50 coins " +
			"and you can withdraw twice per day.",
	},
	{
		keywords: []string{"transaction history", "my transactions", "payment history", "withdrawal history", "past transactions"},
		answer:   "Your add funds and withdrawal history are listed separately under transactions.",
	},
	{
		keywords: []string{"balance", "how many coins", "my coins"},
		answer:   "Your coin balance is shown at the top of your wallet.",
	},
	{
		keywords: []string{"hello", "hi", "hey", "greetings"},
		answer:   "Hello! I can help with signing in, adding funds, withdrawals and your transaction history.",
	},
	{
		keywords: []string{"thank", "thanks", "appreciate"},
		answer:   "You're welcome! Ask anytime.",
	},
}

const fallbackAnswer = "I'm here to help with signing in, adding funds, withdrawals, transaction history and your balance. " +
	"An admin will also read your message."

// Suggest returns a canned answer for a user message. Multi-word keywords
// match anywhere in the text, single words only as whole words.
func Suggest(message string) string {
	text := strings.ToLower(message)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	for _, in := range intents {
		for _, kw := range in.keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(text, kw) {
					return in.answer
				}
				continue
			}
			if _, ok := set[kw]; ok {
				return in.answer
			}
		}
	}
	return fallbackAnswer
}
