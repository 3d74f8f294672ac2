package request

import "strings"

// Method is an HTTP request method. Any token is permitted so that
// nonstandard verbs such as PURGE reach the wire unchanged; backends
// reject tokens their transport cannot express.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// ParseMethod normalizes a method string to its canonical uppercase
// form. Unknown verbs are kept as custom methods rather than rejected.
func ParseMethod(s string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(s)))
}

func (m Method) String() string {
	return string(m)
}
