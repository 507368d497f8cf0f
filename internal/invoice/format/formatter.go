// Package format renders human-readable invoice numbers.
package format

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultInvoiceNumberTemplate yields numbers such as INV-202404-0007.
const DefaultInvoiceNumberTemplate = "INV-{YYYY}{MM}-{SEQ4}"

var (
	ErrEmptyTemplate   = errors.New("invoice number template is empty")
	ErrInvalidSequence = errors.New("invoice sequence must be positive")

	paddedSeq  = regexp.MustCompile(`\{SEQ(\d+)\}`)
	leftover   = regexp.MustCompile(`\{[^}]*\}`)
	dateTokens = []struct {
		token  string
		layout string
	}{
		{"{YYYY}", "2006"},
		{"{YY}", "06"},
		{"{MM}", "01"},
		{"{DD}", "02"},
	}
)

// FormatInvoiceNumber expands date tokens from issuedAt and {SEQ}/{SEQn}
// from seq. Unknown tokens are an error.
func FormatInvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", ErrEmptyTemplate
	}
	if seq <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSequence, seq)
	}

	out := template
	for _, dt := range dateTokens {
		out = strings.ReplaceAll(out, dt.token, issuedAt.Format(dt.layout))
	}
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))
	out = paddedSeq.ReplaceAllStringFunc(out, func(tok string) string {
		width, err := strconv.Atoi(paddedSeq.FindStringSubmatch(tok)[1])
		if err != nil || width <= 0 || width > 12 {
			return tok
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if bad := leftover.FindString(out); bad != "" {
		return "", fmt.Errorf("unresolved token %s in invoice number template %q", bad, template)
	}
	return out, nil
}
