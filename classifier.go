// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "strings"

// ModuleCategory is the closed set a module is bucketed into by the
// static classifier tables below.
type ModuleCategory uint8

const (
	CategoryThirdParty ModuleCategory = iota
	CategoryApplication
	CategorySystem
	CategoryGraphicsDriver
)

func (c ModuleCategory) String() string {
	switch c {
	case CategorySystem:
		return "System"
	case CategoryGraphicsDriver:
		return "GraphicsDriver"
	case CategoryApplication:
		return "Application"
	default:
		return "ThirdParty"
	}
}

// ShouldBlame reports whether a module of this category is eligible to
// be named as the blamed module. Only System is excluded.
func (c ModuleCategory) ShouldBlame() bool {
	return c != CategorySystem
}

// systemShortNames is the fixed set of Windows core DLL short names.
var systemShortNames = map[string]bool{
	"ntdll": true, "kernel32": true, "kernelbase": true, "user32": true,
	"gdi32": true, "gdi32full": true, "msvcrt": true, "ucrtbase": true,
	"ole32": true, "oleaut32": true, "combase": true, "rpcrt4": true,
	"sechost": true, "crypt32": true, "advapi32": true,
	"ws2_32": true, "winhttp": true, "wininet": true, "urlmon": true,
	"shell32": true, "shlwapi": true, "shcore": true, "win32u": true,
	"cfgmgr32": true, "setupapi": true, "wintrust": true, "imagehlp": true,
	"dbghelp": true, "version": true, "psapi": true, "imm32": true,
	"msctf": true, "clr": true, "clrjit": true, "mscorwks": true,
	"coreclr": true, "mscoreei": true,
	"d3d9": true, "d3d10": true, "d3d10_1": true, "d3d11": true, "d3d12": true,
	"dxgi": true, "d2d1": true, "dwrite": true, "dcomp": true,
	"mf": true, "mfplat": true, "mfreadwrite": true,
	"windowscodecs": true, "propsys": true, "profapi": true,
	"powrprof": true, "ntmarta": true,
}

// systemShortNamePrefixes covers the vcruntime*/msvcp*/bcrypt* families.
var systemShortNamePrefixes = []string{"vcruntime", "msvcp", "bcrypt"}

// graphicsDriverShortNames is the fixed set of driver DLL short names
// matched by exact name.
var graphicsDriverShortNames = map[string]bool{
	"nvinit": true, "nvumdshimx": true, "nvldumdx": true, "vulkan-1": true,
}

// graphicsDriverPrefixes covers the vendor-family wildcard entries.
var graphicsDriverPrefixes = []string{
	"igxelp", "ig9", "igd", "igc", "igdumdim", "igdusc64", "intelocl64", "igdfcl64",
	"nvogl", "nvd3d", "nvwgf2", "nvcuda", "nvapi", "nvopencl",
	"ati", "amd",
}

func baseName(name string) string {
	name = strings.ToLower(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".dll")
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, ".sys")
	return name
}

func isGraphicsDriver(shortName string) bool {
	if graphicsDriverShortNames[shortName] {
		return true
	}
	for _, p := range graphicsDriverPrefixes {
		if strings.HasPrefix(shortName, p) {
			return true
		}
	}
	return false
}

func isSystemByName(shortName string) bool {
	if systemShortNames[shortName] {
		return true
	}
	for _, p := range systemShortNamePrefixes {
		if strings.HasPrefix(shortName, p) {
			return true
		}
	}
	return false
}

func isUnderWindowsDir(path string) bool {
	p := strings.ToLower(path)
	return strings.Contains(p, `\windows\system32\`) ||
		strings.Contains(p, `\windows\syswow64\`) ||
		strings.Contains(p, `\windows\winsxs\`)
}

func isUnderApplicationDir(path string) bool {
	p := strings.ToLower(path)
	return strings.Contains(p, `\program files`) || strings.Contains(p, `\programdata`)
}

// Category classifies a module by its full path, per the decision
// order in §4.5: graphics driver, then system, then application,
// everything else falls to third-party.
func Category(path string) ModuleCategory {
	short := baseName(path)

	if isGraphicsDriver(short) {
		return CategoryGraphicsDriver
	}
	if isSystemByName(short) || isUnderWindowsDir(path) {
		return CategorySystem
	}
	if isUnderApplicationDir(path) {
		return CategoryApplication
	}
	return CategoryThirdParty
}

// IsSystem reports true only for the System category; graphics drivers
// are deliberately excluded regardless of their location under
// \windows\, per §4.5.
func IsSystem(path string) bool {
	return Category(path) == CategorySystem
}
