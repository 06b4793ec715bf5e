// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"
)

// MaxModules is the hard cap on the number of modules decoded from the
// ModuleList stream, per invariant 2.
const MaxModules = 50000

const moduleInfoSize = 108

// CodeView signatures, adapted from the PE debug-directory convention
// this spec reuses for minidump module debug info.
const (
	cvSignatureRSDS = 0x53445352
	cvSignatureNB10 = 0x3031424E
)

// VSFixedFileInfo is the 52-byte fixed version-info resource embedded
// in a ModuleInfo record.
type VSFixedFileInfo struct {
	Signature        uint32 `json:"signature"`
	StrucVersion     uint32 `json:"struc_version"`
	FileVersionMS    uint32 `json:"file_version_ms"`
	FileVersionLS    uint32 `json:"file_version_ls"`
	ProductVersionMS uint32 `json:"product_version_ms"`
	ProductVersionLS uint32 `json:"product_version_ls"`
	FileFlagsMask    uint32 `json:"file_flags_mask"`
	FileFlags        uint32 `json:"file_flags"`
	FileOS           uint32 `json:"file_os"`
	FileType         uint32 `json:"file_type"`
	FileSubtype      uint32 `json:"file_subtype"`
	FileDateMS       uint32 `json:"file_date_ms"`
	FileDateLS       uint32 `json:"file_date_ls"`
}

// vsFixedFileInfoSignature is the required dwSignature value.
const vsFixedFileInfoSignature = 0xFEEF04BD

// CodeViewRecord is the decoded CodeView debug record (PDB70/RSDS or
// PDB20/NB10), adapted from the PE debug directory's own CodeView
// handling.
type CodeViewRecord struct {
	IsRSDS      bool      `json:"is_rsds"`
	PDBGUID     uuid.UUID `json:"pdb_guid,omitempty"`
	NB10Offset  uint32    `json:"nb10_offset,omitempty"`
	NB10Sig     uint32    `json:"nb10_signature,omitempty"`
	Age         uint32    `json:"age"`
	PDBFileName string    `json:"pdb_file_name"`
}

// ModuleInfo is one decoded ModuleList entry (§3/§4.3).
type ModuleInfo struct {
	Base          uint64           `json:"base"`
	Size          uint32           `json:"size"`
	Checksum      uint32           `json:"checksum"`
	TimeDateStamp uint32           `json:"time_date_stamp"`
	NameRVA       uint32           `json:"name_rva"`
	Name          string           `json:"name"`
	VersionInfo   *VSFixedFileInfo `json:"version_info,omitempty"`
	CodeViewLoc   LocationDescriptor `json:"code_view_location"`
	MiscLoc       LocationDescriptor `json:"misc_location"`
	CodeView      *CodeViewRecord  `json:"code_view,omitempty"`
}

// End returns the exclusive end address of the module, saturating on
// overflow per invariant 5.
func (m ModuleInfo) End() uint64 {
	end := m.Base + uint64(m.Size)
	if end < m.Base {
		return ^uint64(0)
	}
	return end
}

// Contains reports whether addr falls within [Base, End()).
func (m ModuleInfo) Contains(addr uint64) bool {
	return addr >= m.Base && addr < m.End()
}

// ShortName returns the substring after the last path separator in
// Name, per §4.4.
func (m ModuleInfo) ShortName() string {
	name := m.Name
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func parseModuleList(r *reader, e DirectoryEntry, maxModules uint32) ([]ModuleInfo, bool) {
	count, err := r.u32(e.RVA)
	if err != nil {
		return nil, false
	}
	if count > maxModules {
		return nil, false
	}
	total := count * moduleInfoSize
	if count != 0 && total/count != moduleInfoSize {
		return nil, false
	}
	if !r.inRange(e.RVA+4, total) {
		return nil, false
	}

	modules := make([]ModuleInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		base := e.RVA + 4 + i*moduleInfoSize
		var m ModuleInfo

		if v, err := r.u64(base); err == nil {
			m.Base = v
		} else {
			continue
		}
		if v, err := r.u32(base + 8); err == nil {
			m.Size = v
		}
		if v, err := r.u32(base + 12); err == nil {
			m.Checksum = v
		}
		if v, err := r.u32(base + 16); err == nil {
			m.TimeDateStamp = v
		}
		if v, err := r.u32(base + 20); err == nil {
			m.NameRVA = v
			m.Name = r.utf16LP(v)
		}

		if sig, err := r.u32(base + 24); err == nil && sig == vsFixedFileInfoSignature {
			var vfi VSFixedFileInfo
			vfi.Signature = sig
			if v, err := r.u32(base + 28); err == nil {
				vfi.StrucVersion = v
			}
			if v, err := r.u32(base + 32); err == nil {
				vfi.FileVersionMS = v
			}
			if v, err := r.u32(base + 36); err == nil {
				vfi.FileVersionLS = v
			}
			if v, err := r.u32(base + 40); err == nil {
				vfi.ProductVersionMS = v
			}
			if v, err := r.u32(base + 44); err == nil {
				vfi.ProductVersionLS = v
			}
			if v, err := r.u32(base + 48); err == nil {
				vfi.FileFlagsMask = v
			}
			if v, err := r.u32(base + 52); err == nil {
				vfi.FileFlags = v
			}
			if v, err := r.u32(base + 56); err == nil {
				vfi.FileOS = v
			}
			if v, err := r.u32(base + 60); err == nil {
				vfi.FileType = v
			}
			if v, err := r.u32(base + 64); err == nil {
				vfi.FileSubtype = v
			}
			if v, err := r.u32(base + 68); err == nil {
				vfi.FileDateMS = v
			}
			if v, err := r.u32(base + 72); err == nil {
				vfi.FileDateLS = v
			}
			m.VersionInfo = &vfi
		}

		if v, err := r.u32(base + 76); err == nil {
			m.CodeViewLoc.Size = v
		}
		if v, err := r.u32(base + 80); err == nil {
			m.CodeViewLoc.RVA = v
		}
		if v, err := r.u32(base + 84); err == nil {
			m.MiscLoc.Size = v
		}
		if v, err := r.u32(base + 88); err == nil {
			m.MiscLoc.RVA = v
		}

		if m.CodeViewLoc.Size >= 24 {
			if cv, ok := parseCodeView(r, m.CodeViewLoc); ok {
				m.CodeView = &cv
			}
		}

		modules = append(modules, m)
	}
	return modules, true
}

// parseCodeView decodes the RSDS (PDB 7.0) or NB10 (PDB 2.0) CodeView
// payload at loc. Adapted from the PE debug directory's CodeView
// handling: same signature dispatch and field order, with the raw GUID
// promoted to a uuid.UUID instead of a {Data1,Data2,Data3,Data4} struct.
func parseCodeView(r *reader, loc LocationDescriptor) (CodeViewRecord, bool) {
	sig, err := r.u32(loc.RVA)
	if err != nil {
		return CodeViewRecord{}, false
	}

	switch sig {
	case cvSignatureRSDS:
		data1, err := r.u32(loc.RVA + 4)
		if err != nil {
			return CodeViewRecord{}, false
		}
		data2, err := r.u16(loc.RVA + 8)
		if err != nil {
			return CodeViewRecord{}, false
		}
		data3, err := r.u16(loc.RVA + 10)
		if err != nil {
			return CodeViewRecord{}, false
		}
		data4, err := r.bytes(loc.RVA+12, 8)
		if err != nil {
			return CodeViewRecord{}, false
		}
		var guidBytes [16]byte
		binary.BigEndian.PutUint32(guidBytes[0:4], data1)
		binary.BigEndian.PutUint16(guidBytes[4:6], data2)
		binary.BigEndian.PutUint16(guidBytes[6:8], data3)
		copy(guidBytes[8:16], data4)

		age, err := r.u32(loc.RVA + 20)
		if err != nil {
			return CodeViewRecord{}, false
		}

		nameLen := int32(loc.Size) - 24
		var name string
		if nameLen > 0 {
			name = r.asciiZ(loc.RVA+24, uint32(nameLen))
		}

		return CodeViewRecord{
			IsRSDS:      true,
			PDBGUID:     uuid.UUID(guidBytes),
			Age:         age,
			PDBFileName: name,
		}, true

	case cvSignatureNB10:
		offset, err := r.u32(loc.RVA + 4)
		if err != nil {
			return CodeViewRecord{}, false
		}
		timestamp, err := r.u32(loc.RVA + 8)
		if err != nil {
			return CodeViewRecord{}, false
		}
		age, err := r.u32(loc.RVA + 12)
		if err != nil {
			return CodeViewRecord{}, false
		}

		nameLen := int32(loc.Size) - 16
		var name string
		if nameLen > 0 {
			name = r.asciiZ(loc.RVA+16, uint32(nameLen))
		}

		return CodeViewRecord{
			IsRSDS:      false,
			NB10Offset:  offset,
			NB10Sig:     timestamp,
			Age:         age,
			PDBFileName: name,
		}, true
	}

	return CodeViewRecord{}, false
}
