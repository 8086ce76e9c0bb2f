// Package artifact implements the Summary artifact pipeline's pure,
// deterministic production steps (spec §4.5): reference-number minting,
// markdown rendering, and PDF rendering. None of it talks to the database
// or the blob store — internal/service owns orchestration and I/O.
package artifact

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateReferenceNumber produces a Summary's human-legible reference
// number, format SUM-YYYYMMDD-XXXXX, a pure function of (summaryID, date)
// per spec §3/§8. The suffix algorithm is replicated exactly from
// original_source/app/utils/reference_number.py: take the summary id's hex
// digits (dashes stripped) two at a time; for each pair, compute its
// integer value and map it to a letter (A-Z, value%26) if the value is
// even, or a digit (value%10) if odd; left-justify-pad with '0' to 5
// characters.
func GenerateReferenceNumber(summaryID string, date time.Time) string {
	hexDigits := strings.ToUpper(strings.ReplaceAll(summaryID, "-", ""))

	var suffix strings.Builder
	for i := 0; i+2 <= len(hexDigits) && i < 10; i += 2 {
		value, err := strconv.ParseInt(hexDigits[i:i+2], 16, 64)
		if err != nil {
			continue
		}
		if value%2 == 0 {
			suffix.WriteByte(referenceAlphabet[value%26])
		} else {
			suffix.WriteByte(byte('0' + value%10))
		}
	}

	s := suffix.String()
	for len(s) < 5 {
		s += "0"
	}
	s = s[:5]

	return fmt.Sprintf("SUM-%s-%s", date.Format("20060102"), s)
}
