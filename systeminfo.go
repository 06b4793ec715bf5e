// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "fmt"

// ProcessorArchitecture is the closed enum of CPU architectures a
// SystemInfo stream may declare.
type ProcessorArchitecture uint16

// Known processor architectures.
const (
	ArchX86          ProcessorArchitecture = 0
	ArchMIPS         ProcessorArchitecture = 1
	ArchAlpha        ProcessorArchitecture = 2
	ArchPPC          ProcessorArchitecture = 3
	ArchSHX          ProcessorArchitecture = 4
	ArchARM          ProcessorArchitecture = 5
	ArchIA64         ProcessorArchitecture = 6
	ArchAlpha64      ProcessorArchitecture = 7
	ArchMSIL         ProcessorArchitecture = 8
	ArchAMD64        ProcessorArchitecture = 9
	ArchX86OnX64     ProcessorArchitecture = 10
	ArchNeutral      ProcessorArchitecture = 11
	ArchARM64        ProcessorArchitecture = 12
	ArchARM32OnX64   ProcessorArchitecture = 13
	ArchX86OnARM64   ProcessorArchitecture = 14
	ArchUnknown      ProcessorArchitecture = 0xFFFF
)

func (a ProcessorArchitecture) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchMIPS:
		return "MIPS"
	case ArchAlpha:
		return "Alpha"
	case ArchPPC:
		return "PPC"
	case ArchSHX:
		return "SHX"
	case ArchARM:
		return "ARM"
	case ArchIA64:
		return "IA-64"
	case ArchAlpha64:
		return "Alpha64"
	case ArchMSIL:
		return "MSIL"
	case ArchAMD64:
		return "AMD64"
	case ArchX86OnX64:
		return "x86-on-x64"
	case ArchNeutral:
		return "Neutral"
	case ArchARM64:
		return "ARM64"
	case ArchARM32OnX64:
		return "ARM32-on-x64"
	case ArchX86OnARM64:
		return "x86-on-ARM64"
	default:
		return "Unknown"
	}
}

// ProductType is the closed enum of Windows product types.
type ProductType uint8

const (
	ProductWorkstation  ProductType = 1
	ProductDomainController ProductType = 2
	ProductServer       ProductType = 3
)

// PlatformID is the closed enum of platform ids. Per the §9 design note,
// only the three canonical Microsoft SDK values are decoded; any other
// on-disk value maps to PlatformUnknown without failing the stream.
type PlatformID uint32

const (
	PlatformWin32s       PlatformID = 0
	PlatformWin32Windows PlatformID = 1
	PlatformWin32NT      PlatformID = 2
	PlatformUnknown      PlatformID = 0xFFFFFFFF
)

func decodePlatformID(raw uint32) PlatformID {
	switch raw {
	case 0:
		return PlatformWin32s
	case 1:
		return PlatformWin32Windows
	case 2:
		return PlatformWin32NT
	default:
		return PlatformUnknown
	}
}

// CPUInfoX86 is the x86/AMD64/x86-on-x64 variant of the CPU info union.
type CPUInfoX86 struct {
	VendorID         [3]uint32 `json:"vendor_id"`
	VersionInfo      uint32    `json:"version_info"`
	FeatureInfo      uint32    `json:"feature_info"`
	ExtendedFeatures uint32    `json:"amd_extended_cpu_features"`
}

// CPUInfoOther is the variant used for every non-x86-family
// architecture.
type CPUInfoOther struct {
	ProcessorFeatures [2]uint64 `json:"processor_features"`
}

// SystemInfo is the decoded SystemInfo stream (§3/§4.3).
type SystemInfo struct {
	ProcessorArchitecture ProcessorArchitecture `json:"processor_architecture"`
	ProcessorLevel        uint16                `json:"processor_level"`
	ProcessorRevision     uint16                `json:"processor_revision"`
	NumberOfProcessors    uint8                 `json:"number_of_processors"`
	ProductType           ProductType           `json:"product_type"`
	MajorVersion          uint32                `json:"major_version"`
	MinorVersion          uint32                `json:"minor_version"`
	BuildNumber           uint32                `json:"build_number"`
	PlatformID            PlatformID            `json:"platform_id"`
	CSDVersionRVA         uint32                `json:"csd_version_rva"`
	CSDVersion            string                `json:"csd_version"`
	SuiteMask             uint16                `json:"suite_mask"`

	CPUX86   *CPUInfoX86   `json:"cpu_x86,omitempty"`
	CPUOther *CPUInfoOther `json:"cpu_other,omitempty"`
}

func isX86Family(a ProcessorArchitecture) bool {
	return a == ArchX86 || a == ArchAMD64 || a == ArchX86OnX64
}

// OSName maps (major, minor, build) to a fixed human-readable name per
// §4.3's table.
func (s SystemInfo) OSName() string {
	switch {
	case s.MajorVersion == 10 && s.MinorVersion == 0 && s.BuildNumber >= 22000:
		return "Windows 11"
	case s.MajorVersion == 10 && s.MinorVersion == 0:
		return "Windows 10"
	case s.MajorVersion == 6 && s.MinorVersion == 3:
		return "Windows 8.1"
	case s.MajorVersion == 6 && s.MinorVersion == 2:
		return "Windows 8"
	case s.MajorVersion == 6 && s.MinorVersion == 1:
		return "Windows 7"
	case s.MajorVersion == 6 && s.MinorVersion == 0:
		return "Windows Vista"
	case s.MajorVersion == 5 && s.MinorVersion == 2:
		return "Windows Server 2003/XP x64"
	case s.MajorVersion == 5 && s.MinorVersion == 1:
		return "Windows XP"
	case s.MajorVersion == 5 && s.MinorVersion == 0:
		return "Windows 2000"
	default:
		return fmt.Sprintf("Windows %d.%d", s.MajorVersion, s.MinorVersion)
	}
}

// CPUFamilyModel returns the display family/model, widening to Intel's
// "extended" fields when the base family is 6 or 15, per §4.3.
func (s SystemInfo) CPUFamilyModel() (family, model uint32) {
	if s.CPUX86 == nil {
		return 0, 0
	}
	v := s.CPUX86.VersionInfo
	baseFamily := (v >> 8) & 0xF
	baseModel := (v >> 4) & 0xF
	extFamily := (v >> 20) & 0xFF
	extModel := (v >> 16) & 0xF

	family = baseFamily
	model = baseModel
	if baseFamily == 6 || baseFamily == 15 {
		family = baseFamily + extFamily
		model = (extModel << 4) + baseModel
	}
	return family, model
}

// systemInfoStreamSize is the fixed 56-byte prefix plus the 24-byte CPU
// union.
const systemInfoStreamSize = 56 + 24

func parseSystemInfo(r *reader, e DirectoryEntry) (SystemInfo, bool) {
	if !r.inRange(e.RVA, systemInfoStreamSize) {
		return SystemInfo{}, false
	}
	var s SystemInfo
	base := e.RVA

	archRaw, err := r.u16(base)
	if err != nil {
		return SystemInfo{}, false
	}
	s.ProcessorArchitecture = ProcessorArchitecture(archRaw)

	if v, err := r.u16(base + 2); err == nil {
		s.ProcessorLevel = v
	}
	if v, err := r.u16(base + 4); err == nil {
		s.ProcessorRevision = v
	}
	if v, err := r.u8(base + 6); err == nil {
		s.NumberOfProcessors = v
	}
	if v, err := r.u8(base + 7); err == nil {
		s.ProductType = ProductType(v)
	}
	if v, err := r.u32(base + 8); err == nil {
		s.MajorVersion = v
	}
	if v, err := r.u32(base + 12); err == nil {
		s.MinorVersion = v
	}
	if v, err := r.u32(base + 16); err == nil {
		s.BuildNumber = v
	}
	if v, err := r.u32(base + 20); err == nil {
		s.PlatformID = decodePlatformID(v)
	}
	if v, err := r.u32(base + 24); err == nil {
		s.CSDVersionRVA = v
	}
	if v, err := r.u16(base + 28); err == nil {
		s.SuiteMask = v
	}

	cpuBase := base + 56
	if isX86Family(s.ProcessorArchitecture) {
		var cpu CPUInfoX86
		for i := 0; i < 3; i++ {
			if v, err := r.u32(cpuBase + uint32(i)*4); err == nil {
				cpu.VendorID[i] = v
			}
		}
		if v, err := r.u32(cpuBase + 12); err == nil {
			cpu.VersionInfo = v
		}
		if v, err := r.u32(cpuBase + 16); err == nil {
			cpu.FeatureInfo = v
		}
		if v, err := r.u32(cpuBase + 20); err == nil {
			cpu.ExtendedFeatures = v
		}
		s.CPUX86 = &cpu
	} else {
		var cpu CPUInfoOther
		for i := 0; i < 2; i++ {
			if v, err := r.u64(cpuBase + uint32(i)*8); err == nil {
				cpu.ProcessorFeatures[i] = v
			}
		}
		s.CPUOther = &cpu
	}

	return s, true
}
