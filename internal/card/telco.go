package card

import (
	"fmt"
	"strings"
)

// Supported telcos.
const (
	// TelcoViettel is the Viettel carrier.
	TelcoViettel = "VIETTEL"
	// TelcoVinaphone is the Vinaphone carrier.
	TelcoVinaphone = "VINAPHONE"
	// TelcoMobifone is the Mobifone carrier.
	TelcoMobifone = "MOBIFONE"
)

// telcoRule holds per-carrier card format constraints.
type telcoRule struct {
	codeLengths   []int
	serialLengths []int
}

// telcoRules maps each carrier to its scratch-card format. The lengths are
// carrier-specific and checked before any network call.
var telcoRules = map[string]telcoRule{
	TelcoViettel:   {codeLengths: []int{13, 15}, serialLengths: []int{11, 14}},
	TelcoVinaphone: {codeLengths: []int{14}, serialLengths: []int{14}},
	TelcoMobifone:  {codeLengths: []int{12}, serialLengths: []int{15}},
}

// validAmounts lists the card denominations carriers issue, in VND.
var validAmounts = map[int64]bool{
	10000: true, 20000: true, 30000: true, 50000: true, 100000: true,
	200000: true, 300000: true, 500000: true, 1000000: true,
}

// NormalizeTelco uppercases and validates a telco name.
func NormalizeTelco(telco string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(telco))
	if _, ok := telcoRules[normalized]; !ok {
		return "", fmt.Errorf("unsupported telco %q", telco)
	}
	return normalized, nil
}

// ValidateCard checks telco-specific code/serial lengths and the declared
// denomination.
func ValidateCard(telco, code, serial string, amount int64) error {
	rule, ok := telcoRules[telco]
	if !ok {
		return fmt.Errorf("unsupported telco %q", telco)
	}
	if !containsLength(rule.codeLengths, len(code)) {
		return fmt.Errorf("%s card code must be %s digits", telco, joinLengths(rule.codeLengths))
	}
	if !containsLength(rule.serialLengths, len(serial)) {
		return fmt.Errorf("%s card serial must be %s digits", telco, joinLengths(rule.serialLengths))
	}
	if !isDigits(code) || !isDigits(serial) {
		return fmt.Errorf("card code and serial must be numeric")
	}
	if !validAmounts[amount] {
		return fmt.Errorf("unsupported card amount %d", amount)
	}
	return nil
}

func containsLength(lengths []int, n int) bool {
	for _, l := range lengths {
		if l == n {
			return true
		}
	}
	return false
}

func joinLengths(lengths []int) string {
	parts := make([]string, 0, len(lengths))
	for _, l := range lengths {
		parts = append(parts, fmt.Sprintf("%d", l))
	}
	return strings.Join(parts, " or ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
