package mirror

import (
	"strconv"
	"strings"
)

// Report holds the telemetry recovered from the tool's summary table.
type Report struct {
	FilesCopied      int64
	BytesTransferred int64
}

var filesLabels = []string{"Archivos:", "Files :", "Files:"}

var bytesLabels = []string{"Bytes :", "Bytes:"}

var unitMultipliers = map[string]float64{
	"k": 1 << 10,
	"m": 1 << 20,
	"g": 1 << 30,
	"t": 1 << 40,
}

// ParseReport scans the summary table. The summary columns are
// Total, Copied, Skipped, Mismatch, FAILED, Extras; the Copied column is
// kept. Fields that cannot be parsed stay 0.
func ParseReport(stdout string) Report {
	var report Report
	for _, raw := range strings.Split(stdout, "\n") {
		line := strings.TrimSpace(raw)
		if rest, ok := cutLabel(line, filesLabels); ok {
			if !strings.ContainsAny(rest, "0123456789") {
				continue
			}
			fields := strings.Fields(rest)
			if len(fields) >= 2 {
				if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
					report.FilesCopied = n
				}
			}
			continue
		}
		if rest, ok := cutLabel(line, bytesLabels); ok {
			columns := sizeColumns(strings.Fields(rest))
			switch {
			case len(columns) >= 2:
				report.BytesTransferred = columns[1]
			case len(columns) == 1:
				report.BytesTransferred = columns[0]
			}
		}
	}
	return report
}

func cutLabel(line string, labels []string) (string, bool) {
	for _, label := range labels {
		if rest, ok := strings.CutPrefix(line, label); ok {
			return rest, true
		}
	}
	return "", false
}

// sizeColumns folds "14.4 k"-style token pairs into byte counts. It stops at
// the first token that is neither a number nor a number with a unit suffix.
func sizeColumns(tokens []string) []int64 {
	var columns []int64
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if mult, ok := unitMultipliers[strings.ToLower(tok[len(tok)-1:])]; ok && len(tok) > 1 {
			value, err := strconv.ParseFloat(tok[:len(tok)-1], 64)
			if err != nil {
				return columns
			}
			columns = append(columns, int64(value*mult))
			continue
		}
		value, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return columns
		}
		if i+1 < len(tokens) {
			if mult, ok := unitMultipliers[strings.ToLower(tokens[i+1])]; ok {
				columns = append(columns, int64(value*mult))
				i++
				continue
			}
		}
		columns = append(columns, int64(value))
	}
	return columns
}
