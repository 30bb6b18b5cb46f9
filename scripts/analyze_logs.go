package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalLines           int
	TotalErrors          int
	TotalWarnings        int
	Outcomes             map[string]int
	ProviderDeliveries   map[string]int
	VerificationFailures map[string]int
	MisconfiguredHooks   int
	Anomalies            map[string]int
	ErrorPatterns        map[string]int
}

var (
	outcomeRe      = regexp.MustCompile(`Webhook (\w+) \S+ outcome=(\w+)`)
	verifyFailRe   = regexp.MustCompile(`(\w+) webhook failed verification`)
	misconfigRe    = regexp.MustCompile(`(\w+) webhook rejected \[`)
	anomalyRe      = regexp.MustCompile(`Rejected anomalous event for payment (\S+):`)
	requestIDRe    = regexp.MustCompile(`\[[0-9a-fA-F-]{8,}\]`)
	errorLevelRe   = regexp.MustCompile(`\bERROR\b|"level":"error"`)
	warningLevelRe = regexp.MustCompile(`\bWARN\b|"level":"warn"`)
)

func main() {
	day := time.Now().Format("2006-01-02")
	if len(os.Args) > 1 {
		day = os.Args[1]
	}
	logFile := filepath.Join("./logs", fmt.Sprintf("app-%s.log", day))

	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		os.Exit(1)
	}
	defer file.Close()

	stats, err := analyze(file)
	if err != nil {
		fmt.Printf("Error reading log file %s: %v\n", logFile, err)
		os.Exit(1)
	}
	printReport(os.Stdout, day, stats)
}

func newLogStats() *LogStats {
	return &LogStats{
		Outcomes:             make(map[string]int),
		ProviderDeliveries:   make(map[string]int),
		VerificationFailures: make(map[string]int),
		Anomalies:            make(map[string]int),
		ErrorPatterns:        make(map[string]int),
	}
}

func analyze(r io.Reader) (*LogStats, error) {
	stats := newLogStats()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		stats.TotalLines++

		if m := outcomeRe.FindStringSubmatch(line); m != nil {
			stats.ProviderDeliveries[m[1]]++
			stats.Outcomes[m[2]]++
		}
		if m := verifyFailRe.FindStringSubmatch(line); m != nil {
			stats.VerificationFailures[m[1]]++
		}
		if misconfigRe.MatchString(line) {
			stats.MisconfiguredHooks++
		}
		if m := anomalyRe.FindStringSubmatch(line); m != nil {
			stats.Anomalies[m[1]]++
		}

		switch {
		case errorLevelRe.MatchString(line):
			stats.TotalErrors++
			extractErrorPattern(line, stats)
		case warningLevelRe.MatchString(line):
			stats.TotalWarnings++
		}
	}
	return stats, scanner.Err()
}

// extractErrorPattern keys an error line by its message with ids stripped
func extractErrorPattern(line string, stats *LogStats) {
	msg := line
	if i := strings.Index(msg, "\t"); i >= 0 {
		// console encoder: time, level, caller, message separated by tabs
		fields := strings.Split(msg, "\t")
		msg = fields[len(fields)-1]
	}
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	msg = requestIDRe.ReplaceAllString(msg, "[…]")
	stats.ErrorPatterns[strings.TrimSpace(msg)]++
}

func printReport(w io.Writer, day string, stats *LogStats) {
	fmt.Fprintln(w, "\n=== Webhook Log Report ===")
	fmt.Fprintln(w, "Log date:", day)
	fmt.Fprintln(w, "Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\n1. Deliveries by provider:")
	printTop(w, stats.ProviderDeliveries, 0, "deliveries")

	fmt.Fprintln(w, "\n2. Outcomes:")
	printTop(w, stats.Outcomes, 0, "")

	fmt.Fprintln(w, "\n3. Verification:")
	printTop(w, stats.VerificationFailures, 0, "signature failures")
	fmt.Fprintf(w, "   Misconfigured webhook requests: %d\n", stats.MisconfiguredHooks)

	fmt.Fprintln(w, "\n4. Payments with rejected events:")
	printTop(w, stats.Anomalies, 10, "rejected events")

	fmt.Fprintln(w, "\n5. Log levels:")
	fmt.Fprintf(w, "   Lines: %d  Errors: %d  Warnings: %d\n", stats.TotalLines, stats.TotalErrors, stats.TotalWarnings)

	fmt.Fprintln(w, "\n6. Most Common Errors:")
	printTop(w, stats.ErrorPatterns, 5, "occurrences")
}

func printTop(w io.Writer, counts map[string]int, limit int, unit string) {
	type entry struct {
		key   string
		count int
	}

	var entries []entry
	for k, c := range counts {
		entries = append(entries, entry{k, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].key < entries[j].key
		}
		return entries[i].count > entries[j].count
	})

	if len(entries) == 0 {
		fmt.Fprintln(w, "   none")
		return
	}
	for i, e := range entries {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(w, "   %s: %d %s\n", e.key, e.count, unit)
	}
}
