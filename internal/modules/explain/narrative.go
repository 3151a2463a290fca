package explain

import (
	"math"
	"sort"
	"strconv"
	"strings"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
)

const (
	// Contributions at or below this magnitude are too weak to mention.
	ImpactThreshold = 0.05
	MaxNarrated     = 5

	FallbackNarrative = "This transaction was flagged by the fraud detection model. Detailed feature analysis is unavailable."
	narrativePreamble = "This transaction was flagged as potentially fraudulent"
)

var featureLabels = map[string]string{
	"transaction_amount":        "transaction amount",
	"vendor_age_days":           "vendor account age",
	"location_change":           "vendor location change",
	"transaction_frequency":     "transaction frequency",
	"time_since_last_tx":        "time since last transaction",
	"amount_deviation":          "amount deviation from average",
	"new_vendor_flag":           "new vendor flag",
	"cross_border_flag":         "cross-border transaction",
	"weekend_flag":              "weekend transaction",
	"hour_of_day":               "time of day",
	"category_mismatch":         "category mismatch",
	"ip_risk_score":             "IP address risk score",
	"device_fingerprint_change": "device change",
}

func Label(name string) string {
	if l, ok := featureLabels[name]; ok {
		return l
	}
	return strings.ReplaceAll(name, "_", " ")
}

// Compose builds the narrative for a list of feature contributions. It does
// not modify features.
func Compose(features []types.Feature) string {
	if len(features) == 0 {
		return FallbackNarrative
	}

	ranked := SortByImpact(features)
	if len(ranked) > MaxNarrated {
		ranked = ranked[:MaxNarrated]
	}

	var risk, safety []string
	for _, f := range ranked {
		label := Label(f.Name)
		switch {
		case f.Impact > ImpactThreshold:
			risk = append(risk, describeRisk(f, label))
		case f.Impact < -ImpactThreshold:
			safety = append(safety, describeSafety(f, label))
		}
	}

	var b strings.Builder
	b.WriteString(narrativePreamble)
	if len(risk) > 0 {
		b.WriteString(" primarily because: ")
		b.WriteString(strings.Join(risk, "; "))
		b.WriteString(".")
	} else {
		b.WriteString(" based on a combination of risk indicators.")
	}
	if len(safety) > 0 {
		b.WriteString(" Mitigating factors include: ")
		b.WriteString(strings.Join(safety, "; "))
		b.WriteString(".")
	}
	return b.String()
}

// SortByImpact returns a copy ordered by descending |impact|; ties keep input order.
func SortByImpact(features []types.Feature) []types.Feature {
	out := make([]types.Feature, len(features))
	copy(out, features)
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Impact) > math.Abs(out[j].Impact)
	})
	return out
}

func RiskIncreasing(features []types.Feature) []types.Feature {
	out := []types.Feature{}
	for _, f := range features {
		if f.Impact > 0 {
			out = append(out, f)
		}
	}
	return out
}

func RiskDecreasing(features []types.Feature) []types.Feature {
	out := []types.Feature{}
	for _, f := range features {
		if f.Impact < 0 {
			out = append(out, f)
		}
	}
	return out
}

func describeRisk(f types.Feature, label string) string {
	v := formatValue(f.Value)
	switch f.Name {
	case "transaction_amount":
		return "the " + label + " (£" + formatMoney(f.Value) + ") is unusually high"
	case "location_change":
		return "the vendor location changed recently"
	case "transaction_frequency":
		return "high transaction frequency (" + v + " transactions in a short period)"
	case "new_vendor_flag":
		return "this is a newly registered vendor"
	case "cross_border_flag":
		return "this is a cross-border transaction"
	case "amount_deviation":
		return "the amount deviates significantly from this vendor's average"
	case "ip_risk_score":
		return "the IP address has a high risk score (" + v + ")"
	case "device_fingerprint_change":
		return "the device used for this transaction changed"
	case "category_mismatch":
		return "the transaction category does not match the vendor's typical activity"
	default:
		return "elevated " + label + " (value: " + v + ")"
	}
}

func describeSafety(f types.Feature, label string) string {
	switch f.Name {
	case "vendor_age_days":
		return "established vendor (active for " + formatValue(f.Value) + " days)"
	case "transaction_frequency":
		return "normal transaction frequency"
	case "transaction_amount":
		return "transaction amount is within normal range"
	default:
		return "normal " + label
	}
}

// formatValue prints the shortest representation: 3 not 3.0, 0.85 not 0.850000.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMoney renders v with two decimals and comma thousands separators.
func formatMoney(v float64) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	if v < 0 && s != "0.00" {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}
