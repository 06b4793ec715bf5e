// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "fmt"

// BlameReason names why a particular frame was selected as the
// probable culprit, per §4.7.
type BlameReason string

const (
	BlameGraphicsDriver     BlameReason = "GraphicsDriver"
	BlameDirectCrash        BlameReason = "DirectCrash"
	BlameFirstNonSystem     BlameReason = "FirstNonSystemFrame"
)

// blameLookAheadFrames bounds how many leading frames are checked for a
// graphics-driver hit.
const blameLookAheadFrames = 5

// Blame identifies the frame and module considered responsible for the
// crash.
type Blame struct {
	FrameIndex int         `json:"frame_index"`
	Module     string      `json:"module"`
	Category   ModuleCategory `json:"category"`
	Reason     BlameReason `json:"reason"`
	ReasonText string      `json:"reason_text"`
}

// findBlame applies the priority chain of §4.7: graphics driver within
// the first 5 frames, then a non-system first frame, then the first
// non-system frame anywhere, then the module containing the exception
// address as a last resort.
func findBlame(frames []Frame, modules []ModuleInfo, exception *ExceptionRecord) (Blame, bool) {
	lookAhead := len(frames)
	if lookAhead > blameLookAheadFrames {
		lookAhead = blameLookAheadFrames
	}
	for i := 0; i < lookAhead; i++ {
		if !frames[i].HasModule {
			continue
		}
		m := findModuleByShortName(modules, frames[i].Module)
		if m == nil {
			continue
		}
		if Category(m.Name) == CategoryGraphicsDriver {
			return Blame{
				FrameIndex: i,
				Module:     frames[i].Module,
				Category:   CategoryGraphicsDriver,
				Reason:     BlameGraphicsDriver,
				ReasonText: fmt.Sprintf("crash inside graphics driver module %s", frames[i].Module),
			}, true
		}
	}

	if len(frames) > 0 && frames[0].HasModule {
		m := findModuleByShortName(modules, frames[0].Module)
		if m != nil && Category(m.Name) != CategorySystem {
			return Blame{
				FrameIndex: 0,
				Module:     frames[0].Module,
				Category:   Category(m.Name),
				Reason:     BlameDirectCrash,
				ReasonText: fmt.Sprintf("faulting instruction executed directly in %s", frames[0].Module),
			}, true
		}
	}

	for i, f := range frames {
		if !f.HasModule {
			continue
		}
		m := findModuleByShortName(modules, f.Module)
		if m == nil {
			continue
		}
		if Category(m.Name) != CategorySystem {
			return Blame{
				FrameIndex: i,
				Module:     f.Module,
				Category:   Category(m.Name),
				Reason:     BlameFirstNonSystem,
				ReasonText: fmt.Sprintf("first non-system frame in %s", f.Module),
			}, true
		}
	}

	if exception != nil {
		if m := moduleContaining(modules, exception.Address); m != nil {
			for i, f := range frames {
				if f.Module == m.ShortName() {
					return Blame{
						FrameIndex: i,
						Module:     m.ShortName(),
						Category:   Category(m.Name),
						Reason:     BlameDirectCrash,
						ReasonText: fmt.Sprintf("exception address resolves into %s", m.ShortName()),
					}, true
				}
			}
			return Blame{
				FrameIndex: -1,
				Module:     m.ShortName(),
				Category:   Category(m.Name),
				Reason:     BlameDirectCrash,
				ReasonText: fmt.Sprintf("exception address resolves into %s", m.ShortName()),
			}, true
		}
	}

	return Blame{}, false
}

func findModuleByShortName(modules []ModuleInfo, short string) *ModuleInfo {
	for i := range modules {
		if modules[i].ShortName() == short {
			return &modules[i]
		}
	}
	return nil
}

// probableCause chooses the probable-cause sentence by exception code
// first, falling back to the blamed module's reason text or the
// NTSTATUS description, per §4.7.
func probableCause(exception *ExceptionRecord, blame Blame, hasBlame bool) string {
	if exception != nil {
		switch exception.Code {
		case ExceptionAccessViolation:
			if s, ok := exception.AccessViolationDetails(); ok {
				return s
			}
			return "Invalid memory access"
		case ExceptionStackOverflow:
			return "Stack overflow - excessive recursion or large stack allocations"
		case ExceptionIntegerDivByZero:
			return "Division by zero in integer arithmetic"
		case ExceptionStackBufferOverrun:
			return "Security check failure - buffer overrun detected"
		case ExceptionCppException:
			return "Unhandled C++ exception"
		}
	}
	if hasBlame {
		return fmt.Sprintf("Exception in %s: %s", blame.Module, blame.ReasonText)
	}
	if exception != nil {
		return Description(exception.Code)
	}
	return "Unknown exception code."
}

// recommendation chooses the user-facing recommendation by blame
// category, per §4.7.
func recommendation(blame Blame, hasBlame bool) string {
	if !hasBlame {
		return "Analyze the stack trace for more detail."
	}
	switch blame.Category {
	case CategoryGraphicsDriver:
		return fmt.Sprintf("Update graphics drivers for %s.", blame.Module)
	case CategoryThirdParty:
		return fmt.Sprintf("Check for updates to %s.", blame.Module)
	case CategoryApplication:
		return "Likely a bug in the application code; review the faulting module's recent changes."
	case CategorySystem:
		return "Check for Windows updates or hardware issues."
	default:
		return "Analyze the stack trace for more detail."
	}
}

// analysisConfidence scores overall confidence per §4.7.
func analysisConfidence(frames []Frame) Confidence {
	var framePointerCount, highCount int
	for _, f := range frames {
		if f.Type == FrameFramePointer {
			framePointerCount++
		}
		if f.Confidence == ConfidenceHigh {
			highCount++
		}
	}
	if framePointerCount >= 3 && highCount >= 4 {
		return ConfidenceHigh
	}
	if highCount >= 2 || framePointerCount >= 1 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// CrashAnalysis is the output of analyzing a parsed dump's faulting
// thread, per §6.
type CrashAnalysis struct {
	Frames         []Frame    `json:"frames"`
	Blame          *Blame     `json:"blame,omitempty"`
	Summary        string     `json:"summary"`
	Recommendation string     `json:"recommendation"`
	Confidence     Confidence `json:"confidence"`
}

// Analyze walks the faulting thread's stack and summarizes the crash.
// Returns (nil, false) when there is no exception or no thread context
// to analyze, per §6.
func Analyze(d *ParsedDump) (*CrashAnalysis, bool) {
	if d.Exception == nil {
		return nil, false
	}
	thread := d.FaultingThread()
	if thread == nil || thread.Context == nil {
		return nil, false
	}

	frames := WalkStack(d.reader(), d.ModuleList, d.Memory64List, d.Exception, *thread)
	blame, hasBlame := findBlame(frames, d.ModuleList, d.Exception)

	var blamePtr *Blame
	if hasBlame {
		blamePtr = &blame
	}

	analysis := &CrashAnalysis{
		Frames:         frames,
		Blame:          blamePtr,
		Summary:        probableCause(d.Exception, blame, hasBlame),
		Recommendation: recommendation(blame, hasBlame),
		Confidence:     analysisConfidence(frames),
	}
	return analysis, true
}
