package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/momentum/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a titled header with optional key-value lines
func PrintHeader(title string, lines ...[2]string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, kv := range lines {
			fmt.Printf("  %-10s: %s\n", kv[0], kv[1])
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	total := 0
	for i, w := range widths {
		total += w
		if i < len(widths)-1 {
			total += 2
		}
	}
	fmt.Println(strings.Repeat("─", total))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	scoreColumns = []string{"#", "Ticker", "Composite", "Rating", "Price", "Tech", "Fund", "Rel", "Last", "Source"}
	scoreWidths  = []int{3, 8, 9, 17, 6, 6, 6, 6, 10, 7}
)

// PrintScores prints scores as a table in the given order
func PrintScores(scores []contracts.MomentumScore) {
	PrintTableHeader(scoreColumns, scoreWidths)
	for i, s := range scores {
		PrintTableRow([]string{
			fmt.Sprintf("%d", i+1),
			s.Ticker,
			fmt.Sprintf("%.2f", s.CompositeScore),
			string(s.Rating),
			fmt.Sprintf("%.1f", s.PriceMomentum),
			fmt.Sprintf("%.1f", s.TechnicalMomentum),
			fmt.Sprintf("%.1f", s.FundamentalMomentum),
			fmt.Sprintf("%.1f", s.RelativeMomentum),
			fmt.Sprintf("%.2f", s.CurrentPrice),
			s.Source.String(),
		}, scoreWidths)
	}
}

// orderedScores returns the scores of a map in ticker input order
func orderedScores(tickers []string, scores map[string]contracts.MomentumScore) []contracts.MomentumScore {
	out := make([]contracts.MomentumScore, 0, len(scores))
	for _, t := range tickers {
		if s, ok := scores[t]; ok {
			out = append(out, s)
		}
	}
	return out
}
