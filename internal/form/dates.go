package form

import (
	"regexp"
	"strings"

	"github.com/araddon/dateparse"
)

var (
	dmyRe       = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	dmyDashRe   = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	dmyEitherRe = regexp.MustCompile(`^\d{2}[/-]\d{2}[/-]\d{4}$`)
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dmySplitRe  = regexp.MustCompile(`[/-]`)
)

// ToDisplayDate normalizes a date string to DD/MM/YYYY. Strings that no
// known layout or the generic parser accepts are returned unchanged.
func ToDisplayDate(s string) string {
	if s == "" {
		return ""
	}
	if dmyRe.MatchString(s) || dmyDashRe.MatchString(s) {
		return strings.ReplaceAll(s, "-", "/")
	}
	if isoDateRe.MatchString(s) {
		p := strings.Split(s, "-")
		return p[2] + "/" + p[1] + "/" + p[0]
	}
	if t, err := dateparse.ParseLocal(s); err == nil {
		return t.Format("02/01/2006")
	}
	return s
}

// ToInputDate converts DD/MM/YYYY or DD-MM-YYYY to YYYY-MM-DD, the value
// format of a date input control. Anything else passes through.
func ToInputDate(s string) string {
	if s == "" {
		return ""
	}
	if dmyEitherRe.MatchString(s) {
		p := dmySplitRe.Split(s, -1)
		return p[2] + "-" + p[1] + "-" + p[0]
	}
	return s
}
