package finance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reWindow = regexp.MustCompile(`^\d+[dwmyDWMY]$`)

// ParseVaRCommand parses a weighted VaR command string
// Format: /var SPY 0.6 TLT 0.4 [1y]
func ParseVaRCommand(input string) (VaRCommand, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "/var") {
		input = strings.TrimSpace(input[4:])
		// drop a @BotName suffix on the command
		if strings.HasPrefix(input, "@") {
			if i := strings.IndexAny(input, " \t"); i >= 0 {
				input = strings.TrimSpace(input[i:])
			} else {
				input = ""
			}
		}
	}

	parts := strings.Fields(input)
	if len(parts) < 2 {
		return VaRCommand{}, fmt.Errorf("insufficient arguments: need at least symbol weight")
	}

	window := DefaultWindow
	if last := parts[len(parts)-1]; len(parts)%2 == 1 && reWindow.MatchString(last) {
		window = strings.ToLower(last)
		parts = parts[:len(parts)-1]
	}

	// Remaining parts should be pairs of symbol weight
	if len(parts)%2 != 0 {
		return VaRCommand{}, fmt.Errorf("invalid format: each symbol must have a weight")
	}

	cmd := VaRCommand{Window: window}
	seen := make(map[string]bool)
	totalLong, totalShort := 0.0, 0.0

	for i := 0; i < len(parts); i += 2 {
		symbol := strings.ToUpper(strings.TrimSpace(parts[i]))
		weightStr := strings.TrimSpace(parts[i+1])

		if symbol == "" {
			return VaRCommand{}, fmt.Errorf("empty symbol at position %d", i/2+1)
		}
		if seen[symbol] {
			return VaRCommand{}, fmt.Errorf("duplicate symbol: %s", symbol)
		}
		seen[symbol] = true

		weight, err := strconv.ParseFloat(strings.TrimSuffix(weightStr, "%"), 64)
		if err != nil {
			return VaRCommand{}, fmt.Errorf("invalid weight '%s' for symbol %s: %w", weightStr, symbol, err)
		}
		if strings.HasSuffix(weightStr, "%") {
			weight /= 100
		}

		// Allow negative weights for short positions
		if weight > 1 {
			return VaRCommand{}, fmt.Errorf("long weight %f for symbol %s exceeds 1.0", weight, symbol)
		}
		if weight < -1 {
			return VaRCommand{}, fmt.Errorf("short weight %f for symbol %s exceeds -1.0 (max 100%% short)", weight, symbol)
		}
		if weight > 0 {
			totalLong += weight
		} else {
			totalShort -= weight
		}

		cmd.Assets = append(cmd.Assets, WeightedAsset{Symbol: symbol, Weight: weight})
	}

	// Total gross exposure should be reasonable (e.g., max 3x leverage)
	if gross := totalLong + totalShort; gross > 3.0 {
		return VaRCommand{}, fmt.Errorf("total gross exposure %.3f exceeds 3.0 (300%% leverage limit)", gross)
	}

	return cmd, nil
}
