package auction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseBidAmount accepts a JSON number or a numeric string and returns it as
// a whole, non-negative amount.
func ParseBidAmount(raw interface{}) (int64, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case int64:
		d = decimal.NewFromInt(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidBid, v.String())
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidBid, v)
		}
		d = parsed
	case nil:
		return 0, fmt.Errorf("%w: amount is required", ErrInvalidBid)
	default:
		return 0, fmt.Errorf("%w: unsupported amount type %T", ErrInvalidBid, raw)
	}

	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidBid, d.String())
	}
	if !d.LessThanOrEqual(decimal.NewFromInt(maxBid)) {
		return 0, fmt.Errorf("%w: %s is too large", ErrInvalidBid, d.String())
	}
	return d.IntPart(), nil
}

const maxBid = int64(1) << 53
