package cloudflareip

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidAddress is returned when a token does not denote exactly one
	// IP address.
	ErrInvalidAddress = errors.New("invalid IP address")

	// ErrIPSpoofAttack is returned when the client IP header and the
	// forwarded-for header disagree about the originating address.
	ErrIPSpoofAttack = errors.New("IP spoofing attack")

	// ErrFetchFailed is returned when a trusted range list cannot be retrieved.
	ErrFetchFailed = errors.New("trusted range fetch failed")

	// ErrUnparsableRangeBody is returned when a fetched range list contains a
	// malformed CIDR token or no tokens at all.
	ErrUnparsableRangeBody = errors.New("unparsable trusted range body")
)

// InvalidAddressError describes a token rejected by ParseAddr.
type InvalidAddressError struct {
	Token  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %q", ErrInvalidAddress, e.Token)
	}
	return fmt.Sprintf("%v: %q (%s)", ErrInvalidAddress, e.Token, e.Reason)
}

func (e *InvalidAddressError) Unwrap() error {
	return ErrInvalidAddress
}

// SpoofError is returned by Resolver when spoof checking is enabled and the
// client IP and forwarded-for headers name different origins.
type SpoofError struct {
	ClientIP     []string
	ForwardedFor []string
}

func (e *SpoofError) Error() string {
	return fmt.Sprintf("%v?! client_ip=%q forwarded_for=%q",
		ErrIPSpoofAttack, strings.Join(e.ClientIP, ","), strings.Join(e.ForwardedFor, ","))
}

func (e *SpoofError) Unwrap() error {
	return ErrIPSpoofAttack
}

// ResponseError is returned when a range endpoint answers with a non-success
// status. Body holds the leading bytes of the response for diagnostics.
type ResponseError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: GET %s returned %s (body=%q)", ErrFetchFailed, e.URL, e.Status, e.Body)
}

func (e *ResponseError) Unwrap() error {
	return ErrFetchFailed
}

// RangeBodyError reports the first token of a fetched body that failed to
// parse as a CIDR range.
type RangeBodyError struct {
	Line  int
	Token string
	Err   error
}

func (e *RangeBodyError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%v: no CIDR ranges found", ErrUnparsableRangeBody)
	}
	return fmt.Sprintf("%v: line %d: %q: %v", ErrUnparsableRangeBody, e.Line, e.Token, e.Err)
}

func (e *RangeBodyError) Unwrap() error {
	return ErrUnparsableRangeBody
}
