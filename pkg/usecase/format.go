package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/secmon-lab/contactbook/pkg/domain/model"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	fallback = "-"

	// Slack rejects section text longer than this.
	maxSectionText = 3000
	maxHeaderText  = 150

	// Slack accepts at most this many options in a typeahead response.
	maxOptions = 100
)

func valueOrFallback(value string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

var amountPrinter = message.NewPrinter(language.English)

// toCurrency renders amount with two decimals and thousands separators,
// e.g. "A$12,345.00". Zero renders as the fallback. Codes unknown to CLDR
// are printed as is before the amount.
func toCurrency(amount float64, code string) string {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fallback
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = currency.AUD.String()
	}

	symbol := code + " "
	if unit, err := currency.ParseISO(code); err == nil && unit != (currency.Unit{}) {
		symbol = amountPrinter.Sprint(currency.Symbol(unit))
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + symbol + amountPrinter.Sprint(number.Decimal(amount, number.Scale(2)))
}

func ordinal(n int) string {
	return humanize.Ordinal(n)
}

// formatDate renders "January 2nd 2006".
func formatDate(t time.Time) string {
	return fmt.Sprintf("%s %s %d", t.Month(), ordinal(t.Day()), t.Year())
}

// formatTime renders "3:04 pm on January 2nd 2006".
func formatTime(t time.Time) string {
	return t.Format("3:04 pm") + " on " + formatDate(t)
}

// chunkText splits text into pieces of at most size runes. Empty text yields
// no chunks.
func chunkText(text string, size int) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}

// boldList renders "*A* and *B*".
func boldList(names []string) string {
	bold := make([]string, len(names))
	for i, n := range names {
		bold[i] = "*" + n + "*"
	}
	return strings.Join(bold, " and ")
}

func grantEmoji(g *model.Grant, now time.Time) string {
	if g.IsFuture(now) {
		return ":crystal_ball:"
	}
	return ":moneybag:"
}

func primaryContactEmoji(c *model.Contact) string {
	if c.IsPointPerson() {
		return ":calling: "
	}
	return ""
}

func programsForContact(c *model.Contact) string {
	names := make([]string, 0, len(c.Programs))
	for _, p := range c.Programs {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return valueOrFallback(strings.Join(names, ", "))
}

func organisationNames(c *model.Contact) string {
	names := make([]string, 0, len(c.Organisations))
	for _, o := range c.Organisations {
		names = append(names, o.Name)
	}
	return strings.Join(names, ", ")
}

func grantAmount(g *model.Grant) string {
	if g.Amount != 0 {
		return toCurrency(g.Amount, g.Currency)
	}
	return toCurrency(g.PlannedAmount, g.Currency)
}

func link(url, label string) string {
	if url == "" {
		return label
	}
	return "<" + url + "|" + label + ">"
}
