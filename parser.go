// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package minidump

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/go-kratos/kratos/v2/log"
)

// Options configures a ParsedDump. Every Max* field defaults to the
// cap named in its comment when left zero.
type Options struct {
	// MaxThreads bounds the number of ThreadList entries decoded, by
	// default MaxThreads.
	MaxThreads uint32

	// MaxModules bounds the number of ModuleList entries decoded, by
	// default MaxModules.
	MaxModules uint32

	// MaxUnloadedModules bounds the number of UnloadedModuleList
	// entries decoded, by default MaxUnloadedModules.
	MaxUnloadedModules uint32

	// MaxHandles bounds the number of HandleData entries decoded, by
	// default MaxHandles.
	MaxHandles uint32

	// MaxDirectoryEntries bounds the number of stream directory
	// entries decoded, by default MaxDirectoryEntries.
	MaxDirectoryEntries uint32

	// MaxMemory64Regions bounds the number of Memory64List regions
	// decoded, by default MaxMemory64Regions.
	MaxMemory64Regions uint64

	// MaxMemoryInfoEntries bounds the number of MemoryInfoList
	// entries decoded, by default MaxMemoryInfoEntries.
	MaxMemoryInfoEntries uint64

	// MaxExceptionParams bounds the number of exception parameters
	// decoded, clamped to the on-disk MaxExceptionParameters ceiling.
	MaxExceptionParams uint32

	// A custom logger.
	Logger log.Logger
}

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.MaxThreads == 0 {
		out.MaxThreads = MaxThreads
	}
	if out.MaxModules == 0 {
		out.MaxModules = MaxModules
	}
	if out.MaxUnloadedModules == 0 {
		out.MaxUnloadedModules = MaxUnloadedModules
	}
	if out.MaxHandles == 0 {
		out.MaxHandles = MaxHandles
	}
	if out.MaxDirectoryEntries == 0 {
		out.MaxDirectoryEntries = MaxDirectoryEntries
	}
	if out.MaxMemory64Regions == 0 {
		out.MaxMemory64Regions = MaxMemory64Regions
	}
	if out.MaxMemoryInfoEntries == 0 {
		out.MaxMemoryInfoEntries = MaxMemoryInfoEntries
	}
	if out.MaxExceptionParams == 0 {
		out.MaxExceptionParams = MaxExceptionParameters
	}
	return &out
}

// ParsedDump is the fully decoded view of a single MiniDump file. Every
// stream field is present only when its decoder accepted the on-disk
// record; a nil/empty field means the stream was absent or malformed,
// never a fatal condition.
type ParsedDump struct {
	Header          Header           `json:"header"`
	StreamDirectory []DirectoryEntry `json:"stream_directory"`

	SystemInfo         *SystemInfo      `json:"system_info,omitempty"`
	MiscInfo           *MiscInfo        `json:"misc_info,omitempty"`
	Exception          *ExceptionRecord `json:"exception,omitempty"`
	ThreadList         []ThreadInfo     `json:"thread_list,omitempty"`
	ModuleList         []ModuleInfo     `json:"module_list,omitempty"`
	Memory64List       *Memory64List    `json:"memory64_list,omitempty"`
	MemoryInfoList     []MemoryInfo     `json:"memory_info_list,omitempty"`
	HandleData         *HandleData      `json:"handle_data,omitempty"`
	UnloadedModuleList []UnloadedModule `json:"unloaded_module_list,omitempty"`
	ThreadNames        []ThreadName     `json:"thread_names,omitempty"`

	// Anomalies records every stream that was rejected during decoding,
	// for diagnostic purposes. It never affects control flow.
	Anomalies []string `json:"anomalies,omitempty"`

	r      *reader
	data   mmap.MMap
	f      *os.File
	opts   *Options
	logger *log.Helper
}

func (d *ParsedDump) reader() *reader { return d.r }

// Open memory-maps the file at name and parses it as a MiniDump.
func Open(name string, opts *Options) (*ParsedDump, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	dump := newParsedDump(opts)
	dump.data = data
	dump.f = f
	dump.r = newReader(data)

	if err := dump.Parse(); err != nil {
		dump.Close()
		return nil, err
	}
	return dump, nil
}

// OpenBytes parses a MiniDump already resident in memory. The caller
// retains ownership of data; ParsedDump only borrows it.
func OpenBytes(data []byte, opts *Options) (*ParsedDump, error) {
	dump := newParsedDump(opts)
	dump.r = newReader(data)

	if err := dump.Parse(); err != nil {
		return nil, err
	}
	return dump, nil
}

func newParsedDump(opts *Options) *ParsedDump {
	dump := &ParsedDump{opts: opts.withDefaults()}

	var logger log.Logger
	if dump.opts.Logger == nil {
		logger = log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelError))
	} else {
		logger = dump.opts.Logger
	}
	dump.logger = log.NewHelper(logger)
	return dump
}

// Close releases the memory mapping backing a dump opened with Open.
// It is a no-op for dumps constructed with OpenBytes.
func (d *ParsedDump) Close() error {
	if d.data != nil {
		_ = d.data.Unmap()
	}
	if d.f != nil {
		return d.f.Close()
	}
	return nil
}

func (d *ParsedDump) anomaly(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.logger.Warn(msg)
	d.Anomalies = append(d.Anomalies, msg)
}

// Parse builds the header and stream directory, then populates every
// stream the directory names. Per §7, only three outcomes are fatal;
// everything else degrades to an absent field plus an anomaly note.
func (d *ParsedDump) Parse() error {
	h, err := parseHeader(d.r)
	if err != nil {
		d.logger.Errorf("header decode failed: %v", err)
		return err
	}
	d.Header = h

	entries, err := parseDirectory(d.r, h, d.opts.MaxDirectoryEntries)
	if err != nil {
		d.logger.Errorf("stream directory decode failed: %v", err)
		return err
	}
	d.StreamDirectory = entries

	if e, ok := findStream(entries, StreamSystemInfo); ok {
		if si, ok := parseSystemInfo(d.r, e); ok {
			si.CSDVersion = d.r.utf16LP(si.CSDVersionRVA)
			d.SystemInfo = &si
		} else {
			d.anomaly("SystemInfo: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamMiscInfo); ok {
		if mi, ok := parseMiscInfo(d.r, e); ok {
			d.MiscInfo = &mi
		} else {
			d.anomaly("MiscInfo: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamException); ok {
		if ex, ok := parseException(d.r, e, d.opts.MaxExceptionParams); ok {
			d.Exception = &ex
		} else {
			d.anomaly("Exception: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamThreadList); ok {
		if threads, ok := parseThreadList(d.r, e, d.opts.MaxThreads); ok {
			d.ThreadList = threads
		} else {
			d.anomaly("ThreadList: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamModuleList); ok {
		if modules, ok := parseModuleList(d.r, e, d.opts.MaxModules); ok {
			d.ModuleList = modules
		} else {
			d.anomaly("ModuleList: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamMemory64List); ok {
		if mem, ok := parseMemory64List(d.r, e, d.opts.MaxMemory64Regions); ok {
			d.Memory64List = &mem
		} else {
			d.anomaly("Memory64List: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamMemoryInfoList); ok {
		if mi, ok := parseMemoryInfoList(d.r, e, d.opts.MaxMemoryInfoEntries); ok {
			d.MemoryInfoList = mi
		} else {
			d.anomaly("MemoryInfoList: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamHandleData); ok {
		if hd, ok := parseHandleData(d.r, e, d.opts.MaxHandles); ok {
			d.HandleData = &hd
		} else {
			d.anomaly("HandleData: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamUnloadedModuleList); ok {
		if um, ok := parseUnloadedModuleList(d.r, e, d.opts.MaxUnloadedModules); ok {
			d.UnloadedModuleList = um
		} else {
			d.anomaly("UnloadedModuleList: decode rejected")
		}
	}
	if e, ok := findStream(entries, StreamThreadNames); ok {
		if tn, ok := parseThreadNames(d.r, e); ok {
			d.ThreadNames = tn
		} else {
			d.anomaly("ThreadNames: decode rejected")
		}
	}

	return nil
}

// FaultingThread returns the thread whose id matches the exception
// record's thread id, or nil if there is no exception or no matching
// thread.
func (d *ParsedDump) FaultingThread() *ThreadInfo {
	if d.Exception == nil {
		return nil
	}
	for i := range d.ThreadList {
		if d.ThreadList[i].ID == d.Exception.ThreadID {
			return &d.ThreadList[i]
		}
	}
	return nil
}

// Resolve renders addr as "<shortName>+0x<hex>" when it falls inside a
// known module, else as a bare hex address.
func (d *ParsedDump) Resolve(addr uint64) string {
	return resolveAddress(d.ModuleList, addr)
}

// ModuleContaining returns the module whose range contains addr, or
// nil.
func (d *ParsedDump) ModuleContaining(addr uint64) *ModuleInfo {
	return moduleContaining(d.ModuleList, addr)
}

// ReadAt serves a read of n bytes of dump memory at the given virtual
// address, using the Memory64List stream.
func (d *ParsedDump) ReadAt(addr uint64, n uint32) ([]byte, bool) {
	return readDumpMemory(d.r, d.Memory64List, addr, n)
}
