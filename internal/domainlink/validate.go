// Package domainlink walks a user through pointing a custom domain at
// pinned content with DNSLink.
package domainlink

import (
	"regexp"
)

const maxDomainLength = 253

var domainPattern = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

const (
	msgRequired = "Domain name is required"
	msgInvalid  = "Please enter a valid domain name (e.g., example.com)"
)

// ValidationError is a field-level problem with the submitted domain.
type ValidationError struct {
	Domain  string
	Message string
}

func (e *ValidationError) Error() string {
	return "domainlink: " + e.Message
}

// Validate checks the syntax of a domain name. It does not resolve it.
func Validate(domain string) error {
	if domain == "" {
		return &ValidationError{Domain: domain, Message: msgRequired}
	}
	if len(domain) > maxDomainLength || !domainPattern.MatchString(domain) {
		return &ValidationError{Domain: domain, Message: msgInvalid}
	}
	return nil
}
