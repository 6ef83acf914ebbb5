// Package coffee converts a day's spending into cups of coffee and renders
// the result onto a picture.
package coffee

import (
	"fmt"

	"github.com/velkoldin-dev/tratyallday/internal/core"
)

// DefaultPrice is the price of one cup in kopecks.
var DefaultPrice = core.Money{Cents: 21300}

// Result is the coffee index of one amount.
type Result struct {
	Cups   int64
	Emoji  string
	Amount core.Money
}

// Index computes round(amount / price). A non-positive price falls back to DefaultPrice.
func Index(amount, price core.Money) Result {
	if price.Cents <= 0 {
		price = DefaultPrice
	}
	cups := amount.DivRound(price)
	return Result{Cups: cups, Emoji: Emoji(cups), Amount: amount}
}

// Emoji grades a cup count.
func Emoji(cups int64) string {
	switch {
	case cups <= 10:
		return "❤️"
	case cups <= 50:
		return "👍"
	case cups <= 100:
		return "🤯"
	default:
		return "😱"
	}
}

// CupsText returns "N чашек кофе" with the right plural form.
func CupsText(n int64) string {
	return fmt.Sprintf("%d %s кофе", n, cupsWord(n))
}

func cupsWord(n int64) string {
	if n < 0 {
		n = -n
	}
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return "чашек"
	case n%10 == 1:
		return "чашка"
	case n%10 >= 2 && n%10 <= 4:
		return "чашки"
	default:
		return "чашек"
	}
}

// Caption is the chat text sent along with the picture.
func (r Result) Caption(dayLabel string) string {
	return fmt.Sprintf("☕ Индекс кофе за %s\n\n💸 Траты: %s\n%s %s",
		dayLabel, r.Amount.Display(), CupsText(r.Cups), r.Emoji)
}
