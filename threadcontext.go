// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

// threadContextAMD64Size is the fixed size of a CONTEXT structure for
// the AMD64 architecture.
const threadContextAMD64Size = 1232

// contextFlagHasXMM gates whether the FXSAVE area's XMM registers are
// populated (CONTEXT_FLOATING_POINT, bit 0x8 of the feature mask).
const contextFlagHasXMM = 0x8

// EFlag is one decoded bit of the EFLAGS register.
type EFlag string

// Known EFLAGS bits, per §4.3.
const (
	EFlagCF EFlag = "CF"
	EFlagPF EFlag = "PF"
	EFlagAF EFlag = "AF"
	EFlagZF EFlag = "ZF"
	EFlagSF EFlag = "SF"
	EFlagTF EFlag = "TF"
	EFlagIF EFlag = "IF"
	EFlagDF EFlag = "DF"
	EFlagOF EFlag = "OF"
)

var eflagBits = []struct {
	bit  uint
	flag EFlag
}{
	{0, EFlagCF},
	{2, EFlagPF},
	{4, EFlagAF},
	{6, EFlagZF},
	{7, EFlagSF},
	{8, EFlagTF},
	{9, EFlagIF},
	{10, EFlagDF},
	{11, EFlagOF},
}

// DecodeEFlags returns the set of named flags present in the raw EFLAGS
// value.
func DecodeEFlags(raw uint32) []EFlag {
	var out []EFlag
	for _, b := range eflagBits {
		if raw&(1<<b.bit) != 0 {
			out = append(out, b.flag)
		}
	}
	return out
}

// ThreadContextAMD64 is the decoded AMD64 CONTEXT record (§3/§4.3).
type ThreadContextAMD64 struct {
	ContextFlags uint32 `json:"context_flags"`
	MxCsr        uint32 `json:"mx_csr"`

	CS uint16 `json:"cs"`
	DS uint16 `json:"ds"`
	ES uint16 `json:"es"`
	FS uint16 `json:"fs"`
	GS uint16 `json:"gs"`
	SS uint16 `json:"ss"`

	EFlags uint32 `json:"eflags"`

	DR0 uint64 `json:"dr0"`
	DR1 uint64 `json:"dr1"`
	DR2 uint64 `json:"dr2"`
	DR3 uint64 `json:"dr3"`
	DR6 uint64 `json:"dr6"`
	DR7 uint64 `json:"dr7"`

	RAX, RCX, RDX, RBX uint64 `json:"-"`
	RSP, RBP, RSI, RDI uint64 `json:"-"`
	R8, R9, R10, R11   uint64 `json:"-"`
	R12, R13, R14, R15 uint64 `json:"-"`
	RIP                uint64 `json:"rip"`

	FXSave []byte `json:"-"`

	HasXMM bool        `json:"has_xmm"`
	XMM    [16][16]byte `json:"-"`
}

// EFlagsDecoded returns the named flags set in EFlags.
func (c ThreadContextAMD64) EFlagsDecoded() []EFlag {
	return DecodeEFlags(c.EFlags)
}

func parseThreadContextAMD64(r *reader, rva uint32) (ThreadContextAMD64, bool) {
	if !r.inRange(rva, threadContextAMD64Size) {
		return ThreadContextAMD64{}, false
	}
	var c ThreadContextAMD64

	if v, err := r.u32(rva + 48); err == nil {
		c.ContextFlags = v
	}
	if v, err := r.u32(rva + 52); err == nil {
		c.MxCsr = v
	}
	if v, err := r.u16(rva + 56); err == nil {
		c.CS = v
	}
	if v, err := r.u16(rva + 58); err == nil {
		c.DS = v
	}
	if v, err := r.u16(rva + 60); err == nil {
		c.ES = v
	}
	if v, err := r.u16(rva + 62); err == nil {
		c.FS = v
	}
	if v, err := r.u16(rva + 64); err == nil {
		c.GS = v
	}
	if v, err := r.u16(rva + 66); err == nil {
		c.SS = v
	}
	if v, err := r.u32(rva + 68); err == nil {
		c.EFlags = v
	}

	drOffsets := []*uint64{&c.DR0, &c.DR1, &c.DR2, &c.DR3, &c.DR6, &c.DR7}
	for i, p := range drOffsets {
		if v, err := r.u64(rva + 72 + uint32(i)*8); err == nil {
			*p = v
		}
	}

	gprs := []*uint64{
		&c.RAX, &c.RCX, &c.RDX, &c.RBX, &c.RSP, &c.RBP, &c.RSI, &c.RDI,
		&c.R8, &c.R9, &c.R10, &c.R11, &c.R12, &c.R13, &c.R14, &c.R15,
	}
	for i, p := range gprs {
		if v, err := r.u64(rva + 120 + uint32(i)*8); err == nil {
			*p = v
		}
	}

	if v, err := r.u64(rva + 248); err == nil {
		c.RIP = v
	}

	if fx, err := r.bytes(rva+256, 512); err == nil {
		c.FXSave = fx
	}

	if c.ContextFlags&contextFlagHasXMM != 0 {
		c.HasXMM = true
		for i := 0; i < 16; i++ {
			if b, err := r.bytes(rva+416+uint32(i)*16, 16); err == nil {
				copy(c.XMM[i][:], b)
			}
		}
	}

	return c, true
}
