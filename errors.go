// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import (
	"errors"
	"fmt"
)

// Errors. Every pipeline stage that can fail surfaces one of these five
// taxonomy members, wrapped with enough context (function address, CFI
// text) for the calling build step to fail loudly, per spec §7.
var (
	// ErrMalformedLine is returned when a STACK CFI line matches none of
	// the four parser variants, or a hex field fails to parse.
	ErrMalformedLine = errors.New("armunwind: malformed CFI line")

	// ErrStructuralError is returned when a non-INIT record arrives before
	// any INIT record, or the input holds no INIT record at all.
	ErrStructuralError = errors.New("armunwind: structural error in CFI stream")

	// ErrEncodingRange is returned for a byte value outside [0,255], a
	// negative ULEB128 input, or an SP offset outside [-0x204, +inf) or
	// not a multiple of 4.
	ErrEncodingRange = errors.New("armunwind: value out of encoding range")

	// ErrRegisterDomain is returned for a pop request naming a register
	// outside [4,15], or an empty pop set.
	ErrRegisterDomain = errors.New("armunwind: register outside encodable domain")

	// ErrInvariant is returned when a §3 data-model invariant is violated.
	ErrInvariant = errors.New("armunwind: invariant violated")
)

// malformedLinef wraps ErrMalformedLine with the offending address and text.
func malformedLinef(address uint32, text string) error {
	return fmt.Errorf("%w: address=0x%x text=%q", ErrMalformedLine, address, text)
}

// structuralErrorf wraps ErrStructuralError with a description.
func structuralErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStructuralError, fmt.Sprintf(format, args...))
}

// encodingRangef wraps ErrEncodingRange with a description.
func encodingRangef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEncodingRange, fmt.Sprintf(format, args...))
}

// registerDomainf wraps ErrRegisterDomain with a description.
func registerDomainf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRegisterDomain, fmt.Sprintf(format, args...))
}

// invariantf wraps ErrInvariant with a description.
func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
