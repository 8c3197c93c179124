package order

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sabordigital/zappedido/internal/validation"
)

// ErrNotASummary indicates the text could not be parsed as a cart summary.
// This is expected input, not a failure: the caller apologizes and moves on.
var ErrNotASummary = errors.New("text is not an order summary")

var (
	// "- 2x Pizza Margherita - R$ 30,00"
	itemLineRe = regexp.MustCompile(`(?m)^\s*[-*•]?\s*(\d+)\s*x\s+(.+?)\s*[-–]\s*R\$\s*([\d.,]+)\s*$`)
	// "Total: R$ 65,00"
	totalRe = regexp.MustCompile(`(?im)total:?\s*R\$\s*([\d.,]+)`)
)

var summaryKeywords = []string{"resumo", "pedido", "carrinho", "🛒"}

// LooksLikeSummary applies the keyword heuristic that decides whether an
// inbound message should be handed to the parser at all.
func LooksLikeSummary(text string) bool {
	lowered := strings.ToLower(text)

	for _, kw := range summaryKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}

	return itemLineRe.MatchString(text)
}

// ParseSummary extracts line items and the order total from a free-text cart
// summary. An explicit "total:" value takes precedence over the summed items.
// Parsing is best effort: anything unparseable returns ErrNotASummary.
func ParseSummary(text string) (*Draft, error) {
	matches := itemLineRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, ErrNotASummary
	}

	draft := &Draft{}
	sum := decimal.Zero

	for _, m := range matches {
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty <= 0 {
			continue
		}

		price, err := validation.ParseMoney(m[3])
		if err != nil {
			continue
		}

		item := Item{
			Name:      strings.TrimSpace(m[2]),
			Quantity:  qty,
			UnitPrice: price,
		}
		draft.Items = append(draft.Items, item)
		sum = sum.Add(item.LineTotal())
	}

	if len(draft.Items) == 0 {
		return nil, ErrNotASummary
	}

	// Subtotal is always the item sum; an explicit "total:" only overrides
	// what the customer owes.
	draft.Subtotal = sum
	draft.Total = sum
	if tm := totalRe.FindStringSubmatch(text); tm != nil {
		if explicit, err := validation.ParseMoney(tm[1]); err == nil {
			draft.Total = explicit
		}
	}

	return draft, nil
}
