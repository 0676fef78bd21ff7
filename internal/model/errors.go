package model

import "fmt"

// ParseError is returned by a variant parser when a mention cannot be normalized
type ParseError struct {
	Mention string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse variant %q: %s", e.Mention, e.Reason)
}
