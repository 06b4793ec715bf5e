// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// MiscInfo flag bits gating which fields are present, per §4.3's table.
const (
	miscFlagProcessID           = 0x1
	miscFlagProcessTimes        = 0x2
	miscFlagProcessorPower      = 0x4
	miscFlagProcessIntegrity    = 0x10
	miscFlagProcessExecuteFlags = 0x20
	miscFlagTimezone            = 0x40
	miscFlagProtectedProcess    = 0x80
	miscFlagBuildStrings        = 0x100
)

// ProcessTimes holds the process create/user/kernel time fields,
// expressed in seconds.
type ProcessTimes struct {
	CreateTime uint32 `json:"create_time"`
	UserTime   uint32 `json:"user_time"`
	KernelTime uint32 `json:"kernel_time"`
}

// TimeZoneInfo holds the MiscInfo v1 timezone fields.
type TimeZoneInfo struct {
	TimeZoneID    uint32 `json:"time_zone_id"`
	Bias          int32  `json:"bias"`
	StandardName  string `json:"standard_name"`
	DaylightName  string `json:"daylight_name"`
}

// MiscInfo is the decoded MiscInfo stream. Every field below is only
// populated when its gating flag bit is set; the zero value otherwise
// means "absent", not "zero".
type MiscInfo struct {
	SizeOfInfo uint32 `json:"size_of_info"`
	Flags      uint32 `json:"flags"`

	ProcessID        *uint32       `json:"process_id,omitempty"`
	Times            *ProcessTimes `json:"times,omitempty"`
	TimeZone         *TimeZoneInfo `json:"time_zone,omitempty"`
	IntegrityLevel   *uint32       `json:"integrity_level,omitempty"`
	ExecuteFlags     *uint32       `json:"execute_flags,omitempty"`
	ProtectedProcess *uint32       `json:"protected_process,omitempty"`
	BuildString      string        `json:"build_string,omitempty"`
	DbgBuildString   string        `json:"dbg_build_string,omitempty"`
}

const miscInfoMinSize = 24

func parseMiscInfo(r *reader, e DirectoryEntry) (MiscInfo, bool) {
	sizeOfInfo, err := r.u32(e.RVA)
	if err != nil {
		return MiscInfo{}, false
	}
	if sizeOfInfo < miscInfoMinSize {
		return MiscInfo{}, false
	}
	if !r.inRange(e.RVA, sizeOfInfo) {
		return MiscInfo{}, false
	}

	var m MiscInfo
	m.SizeOfInfo = sizeOfInfo
	base := e.RVA

	flags, err := r.u32(base + 4)
	if err != nil {
		return MiscInfo{}, false
	}
	m.Flags = flags

	if flags&miscFlagProcessID != 0 {
		if v, err := r.u32(base + 8); err == nil {
			m.ProcessID = &v
		}
	}
	if flags&miscFlagProcessTimes != 0 {
		var t ProcessTimes
		if v, err := r.u32(base + 12); err == nil {
			t.CreateTime = v
		}
		if v, err := r.u32(base + 16); err == nil {
			t.UserTime = v
		}
		if v, err := r.u32(base + 20); err == nil {
			t.KernelTime = v
		}
		m.Times = &t
	}
	if flags&miscFlagProcessorPower != 0 && sizeOfInfo >= 44 {
		// Processor power information (v2): 20 bytes at +24, not
		// individually surfaced — the gate's presence is what matters
		// to callers that only need to know the record reached v2.
	}
	if flags&miscFlagProcessIntegrity != 0 && sizeOfInfo >= 232 {
		if v, err := r.u32(base + 44); err == nil {
			m.IntegrityLevel = &v
		}
	}
	if flags&miscFlagProcessExecuteFlags != 0 {
		if v, err := r.u32(base + 48); err == nil {
			m.ExecuteFlags = &v
		}
	}
	if flags&miscFlagProtectedProcess != 0 {
		if v, err := r.u32(base + 52); err == nil {
			m.ProtectedProcess = &v
		}
	}
	if flags&miscFlagTimezone != 0 {
		var tz TimeZoneInfo
		if v, err := r.u32(base + 56); err == nil {
			tz.TimeZoneID = v
		}
		if v, err := r.i32(base + 60); err == nil {
			tz.Bias = v
		}
		tz.StandardName = r.utf16Fixed(base+64, 64)
		tz.DaylightName = r.utf16Fixed(base+196, 64)
		m.TimeZone = &tz
	}
	if flags&miscFlagBuildStrings != 0 && sizeOfInfo >= 1128 {
		m.BuildString = r.utf16Fixed(base+232, 260*2)
		m.DbgBuildString = r.utf16Fixed(base+232+260*2, 40*2)
	}

	return m, true
}
