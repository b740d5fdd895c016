// Package validate holds pure predicates over ERP field values.
package validate

import (
	"regexp"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsEmail reports whether s has the shape local@domain.tld. It does not
// check that the mailbox exists.
func IsEmail(s string) bool {
	return emailRe.MatchString(s)
}
