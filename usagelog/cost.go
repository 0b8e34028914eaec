package usagelog

import "strings"

// Pricing is USD per million tokens.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// pricingTable holds per-model pricing. Matched by prefix so dated model
// snapshots ("gpt-4o-2024-08-06") resolve to their family.
var pricingTable = map[string]Pricing{
	"gpt-4o-mini":       {InputPerM: 0.15, OutputPerM: 0.60},
	"gpt-4o":            {InputPerM: 2.50, OutputPerM: 10.00},
	"gpt-4.1-mini":      {InputPerM: 0.40, OutputPerM: 1.60},
	"gpt-4.1":           {InputPerM: 2.00, OutputPerM: 8.00},
	"claude-3-5-haiku":  {InputPerM: 0.80, OutputPerM: 4.00},
	"claude-3-5-sonnet": {InputPerM: 3.00, OutputPerM: 15.00},
	"claude-sonnet-4":   {InputPerM: 3.00, OutputPerM: 15.00},
	"gemini-2.5-flash":  {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-pro":    {InputPerM: 1.25, OutputPerM: 10.00},
}

// defaultPricing is the fallback for unknown models.
var defaultPricing = Pricing{InputPerM: 1.00, OutputPerM: 3.00}

// co2GramsPerToken is a linear inference-energy estimate: 0.3 g CO2 per
// thousand tokens.
const co2GramsPerToken = 0.0003

// PricingFor resolves pricing for a model name.
func PricingFor(model string) Pricing {
	if p, ok := pricingTable[model]; ok {
		return p
	}
	// Longest matching prefix wins ("gpt-4o-mini-…" must not hit "gpt-4o").
	best := ""
	for prefix := range pricingTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return pricingTable[best]
	}
	return defaultPricing
}

// Cost returns the USD cost of one call.
func Cost(model string, inputTokens, outputTokens int) float64 {
	p := PricingFor(model)
	return float64(inputTokens)/1e6*p.InputPerM + float64(outputTokens)/1e6*p.OutputPerM
}

// CO2Grams returns the estimated CO2 emission in grams for a token total.
func CO2Grams(totalTokens int) float64 {
	return float64(totalTokens) * co2GramsPerToken
}
