// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import "testing"

func TestCategory(t *testing.T) {
	tests := []struct {
		path string
		out  ModuleCategory
	}{
		{`C:\Windows\System32\ntdll.dll`, CategorySystem},
		{`C:\Windows\System32\kernel32.dll`, CategorySystem},
		{`C:\Windows\System32\vcruntime140.dll`, CategorySystem},
		{`C:\Windows\System32\drivers\nvldumdx.dll`, CategoryGraphicsDriver},
		{`C:\Windows\System32\igdumdim64.dll`, CategoryGraphicsDriver},
		{`C:\Windows\System32\vulkan-1.dll`, CategoryGraphicsDriver},
		{`C:\Program Files\Mozilla Firefox\firefox.exe`, CategoryApplication},
		{`C:\ProgramData\Acme\tool.dll`, CategoryApplication},
		{`C:\Users\alice\AppData\Local\SomeLib\thing.dll`, CategoryThirdParty},
		{`C:\Windows\WinSxS\x86_microsoft.something\some.dll`, CategorySystem},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Category(tt.path); got != tt.out {
				t.Errorf("Category(%q) = %v, want %v", tt.path, got, tt.out)
			}
		})
	}
}

func TestIsSystemExcludesGraphicsDriver(t *testing.T) {
	path := `C:\Windows\System32\drivers\nvldumdx.dll`
	if IsSystem(path) {
		t.Errorf("IsSystem(%q) = true, want false (graphics drivers are never system for blame)", path)
	}
}

func TestShouldBlame(t *testing.T) {
	if CategorySystem.ShouldBlame() {
		t.Errorf("CategorySystem.ShouldBlame() = true, want false")
	}
	for _, c := range []ModuleCategory{CategoryGraphicsDriver, CategoryApplication, CategoryThirdParty} {
		if !c.ShouldBlame() {
			t.Errorf("%v.ShouldBlame() = false, want true", c)
		}
	}
}
