// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"encoding/binary"
	"testing"
)

func TestParseMiscInfoProcessIDAndTimes(t *testing.T) {
	b := make([]byte, miscInfoMinSize)
	binary.LittleEndian.PutUint32(b[0:], miscInfoMinSize)
	binary.LittleEndian.PutUint32(b[4:], miscFlagProcessID|miscFlagProcessTimes)
	binary.LittleEndian.PutUint32(b[8:], 4242)
	binary.LittleEndian.PutUint32(b[12:], 1000)
	binary.LittleEndian.PutUint32(b[16:], 30)
	binary.LittleEndian.PutUint32(b[20:], 5)

	r := newReader(b)
	mi, ok := parseMiscInfo(r, DirectoryEntry{RVA: 0})
	if !ok {
		t.Fatalf("parseMiscInfo() rejected a well-formed v1 record")
	}
	if mi.ProcessID == nil || *mi.ProcessID != 4242 {
		t.Fatalf("ProcessID = %v, want 4242", mi.ProcessID)
	}
	if mi.Times == nil || mi.Times.CreateTime != 1000 || mi.Times.UserTime != 30 || mi.Times.KernelTime != 5 {
		t.Errorf("Times = %+v, unexpected", mi.Times)
	}
}

func TestParseMiscInfoGatesUnsetFields(t *testing.T) {
	b := make([]byte, miscInfoMinSize)
	binary.LittleEndian.PutUint32(b[0:], miscInfoMinSize)
	binary.LittleEndian.PutUint32(b[4:], 0) // no flags set

	r := newReader(b)
	mi, ok := parseMiscInfo(r, DirectoryEntry{RVA: 0})
	if !ok {
		t.Fatalf("parseMiscInfo() rejected a well-formed record")
	}
	if mi.ProcessID != nil || mi.Times != nil || mi.TimeZone != nil {
		t.Errorf("fields should stay nil when their gating flag is unset: %+v", mi)
	}
}

func TestParseMiscInfoTimeZone(t *testing.T) {
	size := uint32(60 + 64*2 + 64*2)
	b := make([]byte, size)
	binary.LittleEndian.PutUint32(b[0:], size)
	binary.LittleEndian.PutUint32(b[4:], miscFlagTimezone)
	binary.LittleEndian.PutUint32(b[56:], 2)
	binary.LittleEndian.PutUint32(b[60:], uint32(int32(-480)))

	name := "Pacific Standard Time"
	off := 64
	for _, c := range name {
		binary.LittleEndian.PutUint16(b[off:], uint16(c))
		off += 2
	}

	r := newReader(b)
	mi, ok := parseMiscInfo(r, DirectoryEntry{RVA: 0})
	if !ok {
		t.Fatalf("parseMiscInfo() rejected a well-formed timezone record")
	}
	if mi.TimeZone == nil {
		t.Fatalf("TimeZone was not populated")
	}
	if mi.TimeZone.Bias != -480 {
		t.Errorf("Bias = %d, want -480", mi.TimeZone.Bias)
	}
	if mi.TimeZone.StandardName != name {
		t.Errorf("StandardName = %q, want %q", mi.TimeZone.StandardName, name)
	}
}

func TestParseMiscInfoRejectsUndersizedRecord(t *testing.T) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], miscInfoMinSize-1)
	r := newReader(b)
	if _, ok := parseMiscInfo(r, DirectoryEntry{RVA: 0}); ok {
		t.Errorf("parseMiscInfo() accepted a SizeOfInfo below the minimum")
	}
}
