// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "encoding/binary"

// MaxStackFrames is the hard cap on the number of frames a walk can
// produce, per §4.6.
const MaxStackFrames = 100

// heuristicScanByteCap bounds how many bytes of the stack the
// heuristic scan pass reads.
const heuristicScanByteCap = 8192

// heuristicScanFrameCap bounds how many frames the heuristic scan pass
// can contribute.
const heuristicScanFrameCap = 20

// heuristicSkipThreshold discards scan candidates whose offset into
// their resolved module is implausibly small to be a return site.
const heuristicSkipThreshold = 0x1000

// FrameType classifies how a frame's address was obtained.
type FrameType uint8

const (
	FrameInstructionPointer FrameType = iota
	FrameFramePointer
	FrameReturnAddress
)

func (t FrameType) String() string {
	switch t {
	case FrameInstructionPointer:
		return "InstructionPointer"
	case FrameFramePointer:
		return "FramePointer"
	case FrameReturnAddress:
		return "ReturnAddress"
	default:
		return "Unknown"
	}
}

// Confidence is the qualitative trust level assigned to a frame.
type Confidence uint8

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "High"
	case ConfidenceMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Frame is one entry in a walked call stack (§4.6).
type Frame struct {
	Address        uint64     `json:"address"`
	Module         string     `json:"module,omitempty"`
	OffsetInModule uint64     `json:"offset_in_module,omitempty"`
	HasModule      bool       `json:"-"`
	Type           FrameType  `json:"frame_type"`
	Confidence     Confidence `json:"confidence"`
}

func readU64At(r *reader, mem64 *Memory64List, addr uint64) (uint64, bool) {
	b, ok := readDumpMemory(r, mem64, addr, 8)
	if !ok || len(b) < 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func makeFrame(modules []ModuleInfo, addr uint64, t FrameType, c Confidence) Frame {
	f := Frame{Address: addr, Type: t, Confidence: c}
	if m := moduleContaining(modules, addr); m != nil {
		f.Module = m.ShortName()
		f.OffsetInModule = addr - m.Base
		f.HasModule = true
	}
	return f
}

// WalkStack runs the frame-pointer-chain plus heuristic-scan algorithm
// of §4.6 for a single thread, given the dump's module list (for
// resolution) and its full-memory regions (for reads of stack
// contents). Returns at most MaxStackFrames entries, deduplicated by
// address.
func WalkStack(r *reader, modules []ModuleInfo, mem64 *Memory64List, exception *ExceptionRecord, thread ThreadInfo) []Frame {
	var ordered []Frame
	seen := map[uint64]bool{}

	add := func(f Frame) {
		if seen[f.Address] {
			return
		}
		seen[f.Address] = true
		ordered = append(ordered, f)
	}

	if exception != nil {
		add(makeFrame(modules, exception.Address, FrameInstructionPointer, ConfidenceHigh))
	}

	ctx := thread.Context
	if ctx != nil {
		if exception == nil || ctx.RIP != exception.Address {
			add(makeFrame(modules, ctx.RIP, FrameInstructionPointer, ConfidenceHigh))
		}
	}

	if ctx != nil {
		current := ctx.RBP
		stackBase := thread.Stack.StartVA
		stackEnd := thread.Stack.End()
		for i := 0; i < MaxStackFrames; i++ {
			if current < stackBase || current >= stackEnd || current < ctx.RSP || current%8 != 0 {
				break
			}
			savedRBP, ok := readU64At(r, mem64, current)
			if !ok {
				break
			}
			returnAddr, ok := readU64At(r, mem64, current+8)
			if !ok {
				break
			}
			if m := moduleContaining(modules, returnAddr); m != nil {
				add(Frame{
					Address:        returnAddr,
					Module:         m.ShortName(),
					OffsetInModule: returnAddr - m.Base,
					HasModule:      true,
					Type:           FrameFramePointer,
					Confidence:     ConfidenceHigh,
				})
			}
			if savedRBP <= current {
				break
			}
			current = savedRBP
		}
	}

	if ctx != nil {
		stackEnd := thread.Stack.End()
		var available uint64
		if stackEnd > ctx.RSP {
			available = stackEnd - ctx.RSP
		}
		scanSize := available
		if scanSize > heuristicScanByteCap {
			scanSize = heuristicScanByteCap
		}
		if scanSize >= 8 {
			buf, ok := readDumpMemory(r, mem64, ctx.RSP, uint32(scanSize))
			if ok {
				scanned := 0
				for off := 0; off+8 <= len(buf) && scanned < heuristicScanFrameCap; off += 8 {
					candidate := binary.LittleEndian.Uint64(buf[off : off+8])
					if seen[candidate] {
						continue
					}
					m := moduleContaining(modules, candidate)
					if m == nil {
						continue
					}
					offset := candidate - m.Base
					if offset <= heuristicSkipThreshold {
						continue
					}
					conf := ConfidenceLow
					if IsSystem(m.Name) {
						conf = ConfidenceMedium
					}
					add(Frame{
						Address:        candidate,
						Module:         m.ShortName(),
						OffsetInModule: offset,
						HasModule:      true,
						Type:           FrameReturnAddress,
						Confidence:     conf,
					})
					scanned++
				}
			}
		}
	}

	if len(ordered) > MaxStackFrames {
		ordered = ordered[:MaxStackFrames]
	}
	return ordered
}
