// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "testing"

func TestStatusSeverity(t *testing.T) {
	tests := []struct {
		code uint32
		out  Severity
	}{
		{0x00000000, SeveritySuccess},
		{0x40000015, SeverityInformational},
		{0x80000005, SeverityWarning},
		{0xC0000005, SeverityError},
	}
	for _, tt := range tests {
		if got := StatusSeverity(tt.code); got != tt.out {
			t.Errorf("StatusSeverity(%#x) = %v, want %v", tt.code, got, tt.out)
		}
	}
}

func TestIsError(t *testing.T) {
	if !IsError(0xC0000005) {
		t.Errorf("IsError(0xC0000005) = false, want true")
	}
	if IsError(0x00000000) {
		t.Errorf("IsError(0x00000000) = true, want false")
	}
}

func TestNameKnownCodes(t *testing.T) {
	for code := range ntStatusTable {
		if got := Name(code); got == "" {
			t.Errorf("Name(%#x) returned empty", code)
		}
	}
}

func TestNameUnknownCode(t *testing.T) {
	const unknown = 0xDEADC0DE
	if got, want := Name(unknown), "0xDEADC0DE"; got != want {
		t.Errorf("Name(unknown) = %q, want %q", got, want)
	}
	if got, want := Description(unknown), "Unknown exception code."; got != want {
		t.Errorf("Description(unknown) = %q, want %q", got, want)
	}
}

func TestRequiredCodesPresent(t *testing.T) {
	required := []uint32{
		0x00000000, 0x00000102, 0x00000103, 0x40000000, 0x40000015,
		0x80000001, 0x80000002, 0x80000003, 0x80000004, 0x80000005, 0x80000026, 0x80000029,
		0xC0000001, 0xC0000002, 0xC0000005, 0xC0000006, 0xC0000008, 0xC000000D,
		0xC0000017, 0xC000001D, 0xC0000022, 0xC0000025, 0xC000006D, 0xC000007B,
		0xC000008C, 0xC000008D, 0xC000008E, 0xC000008F, 0xC0000090, 0xC0000091,
		0xC0000092, 0xC0000093, 0xC0000094, 0xC0000095, 0xC0000096,
		0xC00000FD, 0xC0000135, 0xC0000138, 0xC0000139, 0xC000013A, 0xC0000142,
		0xC0000144, 0xC0000194, 0xC0000374, 0xC0000409, 0xC0000417, 0xC0000420,
		0xC0000602, 0xE06D7363, 0xE0434352, 0xE0434F4D, 0x40010005, 0x40010008,
		0xC0020001, 0xC0020047,
	}
	for _, code := range required {
		if !IsKnownStatus(code) {
			t.Errorf("code %#x missing from the NT-status table", code)
		}
	}
}
