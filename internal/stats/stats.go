// Package stats computes the per-country market participation breakdown and
// caches the last successful computation.
//
// For every market the percentage is the size of its member set over the
// number of distinct participants that belong to at least one market. A
// participant in several markets is counted in each numerator, so the
// percentages of one country need not add up to 100.
package stats

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/result"
	"github.com/xtxerr/marketstats/internal/store"
)

// =============================================================================
// Output Types
// =============================================================================

// MarketPercentage is one market's share of the distinct participants.
type MarketPercentage struct {
	Code       string
	Percentage string
}

// MarketPercentages maps market code to percentage, in market order. It
// marshals to a JSON object whose keys keep that order.
type MarketPercentages []MarketPercentage

// Get returns the percentage for a market code.
func (m MarketPercentages) Get(code string) (string, bool) {
	for _, mp := range m {
		if mp.Code == code {
			return mp.Percentage, true
		}
	}
	return "", false
}

// MarshalJSON implements json.Marshaler.
func (m MarketPercentages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, mp := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(mp.Code)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(mp.Percentage)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping key order.
func (m *MarketPercentages) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("market percentages: expected object, got %v", tok)
	}

	out := MarketPercentages{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := tok.(string)
		if !ok {
			return fmt.Errorf("market percentages: expected key, got %v", tok)
		}
		var pct string
		if err := dec.Decode(&pct); err != nil {
			return fmt.Errorf("market percentages: value for %q: %w", code, err)
		}
		out = append(out, MarketPercentage{Code: code, Percentage: pct})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// CountryStats is the breakdown for one country.
type CountryStats struct {
	Country string            `json:"country"`
	Markets MarketPercentages `json:"markets"`
}

// =============================================================================
// Computation
// =============================================================================

// Compute builds the breakdown from the full market graph.
//
// markets must carry their Country and ParticipantIDs. Countries appear in
// the order their first market appears, and markets keep their input order
// within a country. Countries without markets never appear. An empty input
// fails with KindNoMarkets.
func Compute(markets []*store.Market) result.Result[[]CountryStats] {
	if len(markets) == 0 {
		return result.Fail[[]CountryStats](errors.KindNoMarkets, errors.ErrNoMarkets)
	}

	distinct := make(map[int64]struct{})
	for _, m := range markets {
		for _, id := range m.ParticipantIDs {
			distinct[id] = struct{}{}
		}
	}
	total := len(distinct)

	var out []CountryStats
	index := make(map[int64]int)

	for _, m := range markets {
		if m.Country == nil {
			return result.Fault[[]CountryStats](
				fmt.Errorf("market %q: country %d not resolved", m.Code, m.CountryID))
		}

		i, ok := index[m.CountryID]
		if !ok {
			i = len(out)
			index[m.CountryID] = i
			out = append(out, CountryStats{
				Country: m.Country.Description(),
				Markets: MarketPercentages{},
			})
		}

		out[i].Markets = append(out[i].Markets, MarketPercentage{
			Code:       m.Code,
			Percentage: Percentage(countDistinct(m.ParticipantIDs), total),
		})
	}

	return result.Ok(out)
}

// Percentage formats members/total*100 with two decimals, rounding half up.
// A zero total yields "0.00".
func Percentage(members, total int) string {
	if total <= 0 || members <= 0 {
		return constants.ZeroPercentage
	}

	// hundredths of a percent: floor(members*10000/total + 1/2)
	n, d := int64(members), int64(total)
	h := (2*n*10000 + d) / (2 * d)

	return fmt.Sprintf("%d.%02d", h/100, h%100)
}

func countDistinct(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
