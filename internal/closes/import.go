package closes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// ParseCSV reads "symbol,price,time" rows. A header row is skipped, and the
// session is taken from each row's timestamp in loc.
func ParseCSV(r io.Reader, loc *time.Location) ([]EveningPrice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var prices []EveningPrice
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(record[0], "symbol") {
			continue
		}

		symbol := strings.TrimSpace(record[0])
		if symbol == "" {
			return nil, fmt.Errorf("line %d: empty symbol", line)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price %q: %w", line, record[1], err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("line %d: price must be > 0", line)
		}
		observed, err := dateparse.ParseIn(strings.TrimSpace(record[2]), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid time %q: %w", line, record[2], err)
		}

		prices = append(prices, EveningPrice{
			Symbol:     symbol,
			Session:    SessionKey(observed),
			Price:      price,
			ObservedAt: observed,
		})
	}
	return prices, nil
}
