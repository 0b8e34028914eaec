package usagelog

import "sort"

// Bucket is one aggregation row.
type Bucket struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	CO2Grams     float64
}

// Totals summarises a whole ledger.
type Totals struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	CO2Grams     float64
}

// Sum computes ledger totals.
func Sum(records []Record) Totals {
	var t Totals
	for _, r := range records {
		t.Calls++
		t.InputTokens += r.InputTokens
		t.OutputTokens += r.OutputTokens
		t.CostUSD += r.CostUSD
		t.CO2Grams += r.CO2Grams
	}
	return t
}

// ByDay groups records by UTC calendar day (timestamp prefix YYYY-MM-DD).
func ByDay(records []Record) []Bucket {
	return group(records, func(r Record) string {
		if len(r.Timestamp) >= 10 {
			return r.Timestamp[:10]
		}
		return r.Timestamp
	})
}

// ByMonth groups records by calendar month (YYYY-MM).
func ByMonth(records []Record) []Bucket {
	return group(records, func(r Record) string {
		if len(r.Timestamp) >= 7 {
			return r.Timestamp[:7]
		}
		return r.Timestamp
	})
}

// ByOperation groups records by operation name.
func ByOperation(records []Record) []Bucket {
	return group(records, func(r Record) string { return r.Operation })
}

func group(records []Record, keyFn func(Record) string) []Bucket {
	byKey := make(map[string]*Bucket)
	for _, r := range records {
		key := keyFn(r)
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key}
			byKey[key] = b
		}
		b.Calls++
		b.InputTokens += r.InputTokens
		b.OutputTokens += r.OutputTokens
		b.CostUSD += r.CostUSD
		b.CO2Grams += r.CO2Grams
	}
	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
