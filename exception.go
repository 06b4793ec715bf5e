// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "fmt"

// MaxExceptionParameters is the hard cap on exception parameters
// decoded from the stream, per invariant 2. The on-disk count is
// clamped to this value before any parameter is read.
const MaxExceptionParameters = 15

// Well-known exception codes that receive dedicated probable-cause text
// (§4.7) and, for access violations, structured decoding (§4.3).
const (
	ExceptionAccessViolation   = 0xC0000005
	ExceptionStackOverflow     = 0xC00000FD
	ExceptionIntegerDivByZero  = 0xC0000094
	ExceptionStackBufferOverrun = 0xC0000409
	ExceptionCppException      = 0xE06D7363
)

// AccessViolationOperation classifies the first parameter of an access
// violation exception.
type AccessViolationOperation uint8

const (
	AVOperationRead   AccessViolationOperation = 0
	AVOperationWrite  AccessViolationOperation = 1
	AVOperationExecute AccessViolationOperation = 8
	AVOperationOther  AccessViolationOperation = 0xFF
)

// LocationDescriptor is the (size, rva) pair used throughout the
// container to point at variable-length payloads.
type LocationDescriptor struct {
	Size uint32 `json:"size"`
	RVA  uint32 `json:"rva"`
}

// ExceptionRecord is the decoded Exception stream (§3/§4.3).
type ExceptionRecord struct {
	ThreadID       uint32              `json:"thread_id"`
	Code           uint32              `json:"code"`
	Flags          uint32              `json:"flags"`
	NestedRecord   uint64              `json:"nested_record"`
	Address        uint64              `json:"address"`
	ParameterCount uint32              `json:"parameter_count"`
	Parameters     []uint64            `json:"parameters"`
	ContextLoc     LocationDescriptor  `json:"context_location"`
}

// IsAccessViolation reports whether this is a 0xC0000005 fault.
func (e ExceptionRecord) IsAccessViolation() bool {
	return e.Code == ExceptionAccessViolation
}

// AccessViolationDetails returns the human-readable sentence described
// by §4.3/§4.7 for access violations with at least two parameters, or
// ("", false) otherwise.
func (e ExceptionRecord) AccessViolationDetails() (string, bool) {
	if !e.IsAccessViolation() || len(e.Parameters) < 2 {
		return "", false
	}
	var op string
	switch AccessViolationOperation(e.Parameters[0]) {
	case AVOperationRead:
		op = "reading from"
	case AVOperationWrite:
		op = "writing to"
	case AVOperationExecute:
		op = "executing at"
	default:
		op = "accessing"
	}
	return fmt.Sprintf("The instruction at 0x%016X tried %s address 0x%016X",
		e.Address, op, e.Parameters[1]), true
}

// exceptionStreamBase is the fixed offset layout of MINIDUMP_EXCEPTION_STREAM:
// threadId(4) + alignment(4) + MINIDUMP_EXCEPTION{code(4) flags(4)
// nestedRecord(8) address(8) paramCount(4) alignment(4) params[15]x8}
// + MINIDUMP_LOCATION_DESCRIPTOR(8). The params array starts at +40 and
// ends at +160 regardless of the actual parameter count, which is why
// the location descriptor sits at the fixed +160 offset noted in §4.3.
const (
	excOffThreadID     = 0
	excOffCode         = 8
	excOffFlags        = 12
	excOffNestedRecord = 16
	excOffAddress      = 24
	excOffParamCount   = 32
	excOffParams       = 40
	excOffContextLoc   = 160
	exceptionStreamSize = 168
)

func parseException(r *reader, e DirectoryEntry, maxParams uint32) (ExceptionRecord, bool) {
	if !r.inRange(e.RVA, exceptionStreamSize) {
		return ExceptionRecord{}, false
	}
	base := e.RVA
	var rec ExceptionRecord

	if v, err := r.u32(base + excOffThreadID); err == nil {
		rec.ThreadID = v
	} else {
		return ExceptionRecord{}, false
	}
	if v, err := r.u32(base + excOffCode); err == nil {
		rec.Code = v
	}
	if v, err := r.u32(base + excOffFlags); err == nil {
		rec.Flags = v
	}
	if v, err := r.u64(base + excOffNestedRecord); err == nil {
		rec.NestedRecord = v
	}
	if v, err := r.u64(base + excOffAddress); err == nil {
		rec.Address = v
	}

	rawCount, err := r.u32(base + excOffParamCount)
	if err != nil {
		return ExceptionRecord{}, false
	}
	if maxParams > MaxExceptionParameters {
		maxParams = MaxExceptionParameters
	}
	count := rawCount
	if count > maxParams {
		count = maxParams
	}
	rec.ParameterCount = rawCount
	rec.Parameters = make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.u64(base + excOffParams + i*8)
		if err != nil {
			break
		}
		rec.Parameters = append(rec.Parameters, v)
	}

	if size, err := r.u32(base + excOffContextLoc); err == nil {
		rec.ContextLoc.Size = size
	}
	if rva, err := r.u32(base + excOffContextLoc + 4); err == nil {
		rec.ContextLoc.RVA = rva
	}

	return rec, true
}
