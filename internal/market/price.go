package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parsePrice reads a subgraph BigDecimal. A malformed price means a corrupt
// fetch, which must not turn into a notification.
func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty price", ErrSourceUnavailable)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q: %v", ErrSourceUnavailable, s, err)
	}
	return d, nil
}
