// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "errors"

// Fatal dump errors. Parse never returns any other error; every other
// decode failure is recorded as a soft anomaly and the affected stream
// is simply absent from the resulting ParsedDump.
var (
	// ErrInvalidSignature is returned when the blob is shorter than the
	// fixed header or its magic does not equal "MDMP".
	ErrInvalidSignature = errors.New("minidump: invalid signature")

	// ErrInvalidHeader is returned when a header field after the magic
	// cannot be read. No header field beyond the magic is validated.
	ErrInvalidHeader = errors.New("minidump: invalid header")

	// ErrInvalidStreamDirectory is returned when the stream directory
	// cannot be read in full: the declared stream count exceeds
	// MaxDirectoryEntries, the directory range overflows, or it extends
	// past the end of the blob.
	ErrInvalidStreamDirectory = errors.New("minidump: invalid stream directory")
)

// errOutOfRange is the internal sentinel used by the byte reader for any
// read that would touch bytes outside the blob. It never escapes the
// package: every caller turns it into an absent field or record.
var errOutOfRange = errors.New("minidump: read out of range")
