package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/baliwise/ragcore/pkg/models"
)

// Heuristic entity patterns. Visa codes follow the Indonesian immigration
// nomenclature (E28A investor, E33G remote worker, C312 work, ...).
var (
	visaCodeRe = regexp.MustCompile(`\b([EC]\d{2,3}[A-Za-z]?)\b`)
	budgetRe   = regexp.MustCompile(`(?i)(?:(usd|idr|eur|\$|€|rp\.?)\s*)?(\d+(?:[.,]\d{3})*(?:[.,]\d+)?)\s*(k|m|jt|juta|billion|miliar|million|thousand)?\s*(usd|idr|eur|dollars?|rupiah)?`)
)

var knownNationalities = map[string]string{
	"italian": "Italy", "italiano": "Italy", "italy": "Italy",
	"american": "USA", "usa": "USA", "us citizen": "USA",
	"british": "UK", "uk": "UK", "english": "UK",
	"german": "Germany", "germany": "Germany",
	"french": "France", "france": "France",
	"dutch": "Netherlands", "netherlands": "Netherlands",
	"australian": "Australia", "australia": "Australia",
	"russian": "Russia", "russia": "Russia",
	"ukrainian": "Ukraine", "ukraine": "Ukraine",
	"indonesian": "Indonesia", "indonesia": "Indonesia",
	"indian": "India", "india": "India",
	"japanese": "Japan", "japan": "Japan",
	"chinese": "China", "china": "China",
	"spanish": "Spain", "spain": "Spain",
}

// ExtractEntities pulls visa codes, nationalities, and a budget figure out
// of a raw query with regexes and word lists. It never calls a model; the
// output seeds retrieval hints and the streaming metadata event, so a
// false negative costs nothing and a quick heuristic pass is enough.
func ExtractEntities(query string) models.Entities {
	var out models.Entities

	seen := map[string]bool{}
	for _, m := range visaCodeRe.FindAllString(query, -1) {
		code := strings.ToUpper(m)
		// Two-digit codes are E-series (E28A), three-digit are C-series.
		if code[0] == 'E' && len(strings.TrimRight(code[1:], "ABCDEFGHIJKLMNOPQRSTUVWXYZ")) != 2 {
			continue
		}
		if code[0] == 'C' && len(strings.TrimRight(code[1:], "ABCDEFGHIJKLMNOPQRSTUVWXYZ")) != 3 {
			continue
		}
		if !seen[code] {
			seen[code] = true
			out.VisaCodes = append(out.VisaCodes, code)
		}
	}

	lower := strings.ToLower(query)
	seenNat := map[string]bool{}
	for word, country := range knownNationalities {
		if strings.Contains(lower, word) && !seenNat[country] {
			seenNat[country] = true
			out.Nationalities = append(out.Nationalities, country)
		}
	}

	if budget, ok := extractBudget(lower); ok {
		out.BudgetUSD = &budget
	}
	return out
}

// extractBudget finds the first money-looking amount and normalizes it to
// USD. IDR amounts are converted with a fixed coarse rate: the number only
// steers retrieval and formatting, it is never quoted back as a price.
func extractBudget(lower string) (float64, bool) {
	for _, m := range budgetRe.FindAllStringSubmatch(lower, -1) {
		prefix, number, scale, suffix := m[1], m[2], m[3], m[4]
		if prefix == "" && scale == "" && suffix == "" {
			continue // bare number, not money
		}

		normalized := strings.ReplaceAll(number, ",", "")
		// "10.000.000" style thousand separators
		if strings.Count(normalized, ".") > 1 {
			normalized = strings.ReplaceAll(normalized, ".", "")
		}
		value, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			continue
		}

		switch scale {
		case "k", "thousand":
			value *= 1_000
		case "m", "million":
			value *= 1_000_000
		case "jt", "juta":
			value *= 1_000_000
		case "billion", "miliar":
			value *= 1_000_000_000
		}

		currency := prefix
		if suffix != "" {
			currency = suffix
		}
		switch {
		case strings.HasPrefix(currency, "idr") || strings.HasPrefix(currency, "rp") || strings.HasPrefix(currency, "rupiah") || scale == "jt" || scale == "juta" || scale == "miliar":
			value /= 15_000
		case strings.HasPrefix(currency, "eur") || currency == "€":
			value *= 1.1
		}
		return value, true
	}
	return 0, false
}
