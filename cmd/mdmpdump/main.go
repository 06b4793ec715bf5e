// Copyright 2024 Crashwalk. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	minidump "github.com/crashwalk/minidump"
	"github.com/spf13/cobra"
)

var (
	wantThreads   bool
	wantModules   bool
	wantException bool
	wantMemory    bool
	wantHandles   bool
	wantStack     bool
	wantAll       bool
)

func prettyPrint(v interface{}) string {
	buff, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<marshal error: %v>", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buff, "", "\t"); err != nil {
		return string(buff)
	}
	return out.String()
}

func summaryTable(d *minidump.ParsedDump) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Stream\tPresent\tCount\n")
	fmt.Fprintf(w, "SystemInfo\t%v\t-\n", d.SystemInfo != nil)
	fmt.Fprintf(w, "MiscInfo\t%v\t-\n", d.MiscInfo != nil)
	fmt.Fprintf(w, "Exception\t%v\t-\n", d.Exception != nil)
	fmt.Fprintf(w, "ThreadList\t%v\t%d\n", d.ThreadList != nil, len(d.ThreadList))
	fmt.Fprintf(w, "ModuleList\t%v\t%d\n", d.ModuleList != nil, len(d.ModuleList))
	fmt.Fprintf(w, "Memory64List\t%v\t-\n", d.Memory64List != nil)
	fmt.Fprintf(w, "MemoryInfoList\t%v\t%d\n", d.MemoryInfoList != nil, len(d.MemoryInfoList))
	fmt.Fprintf(w, "HandleData\t%v\t-\n", d.HandleData != nil)
	fmt.Fprintf(w, "UnloadedModuleList\t%v\t%d\n", d.UnloadedModuleList != nil, len(d.UnloadedModuleList))
	fmt.Fprintf(w, "ThreadNames\t%v\t%d\n", d.ThreadNames != nil, len(d.ThreadNames))
	w.Flush()
	return buf.String()
}

func dumpFile(filename string) {
	d, err := minidump.Open(filename, &minidump.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening %s: %v\n", filename, err)
		return
	}
	defer d.Close()

	fmt.Print(summaryTable(d))

	if wantThreads || wantAll {
		fmt.Println(prettyPrint(d.ThreadList))
	}
	if wantModules || wantAll {
		fmt.Println(prettyPrint(d.ModuleList))
	}
	if wantException || wantAll {
		fmt.Println(prettyPrint(d.Exception))
	}
	if wantMemory || wantAll {
		fmt.Println(prettyPrint(d.Memory64List))
	}
	if wantHandles || wantAll {
		fmt.Println(prettyPrint(d.HandleData))
	}
	if wantStack || wantAll {
		analysis, ok := minidump.Analyze(d)
		if !ok {
			fmt.Println("no exception or thread context available; cannot walk stack")
		} else {
			fmt.Println(prettyPrint(analysis))
		}
	}
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "mdmpdump",
		Short: "A Windows MiniDump crash-dump analyzer",
		Long:  "mdmpdump parses Windows .dmp minidumps and walks the faulting thread's stack.",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mdmpdump version 0.1.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump [dmp file]",
		Short: "Dumps the requested streams of a minidump",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dumpFile(args[0])
		},
	}

	dumpCmd.Flags().BoolVarP(&wantThreads, "threads", "", false, "Dump the thread list")
	dumpCmd.Flags().BoolVarP(&wantModules, "modules", "", false, "Dump the module list")
	dumpCmd.Flags().BoolVarP(&wantException, "exception", "", false, "Dump the exception record")
	dumpCmd.Flags().BoolVarP(&wantMemory, "memory", "", false, "Dump the memory region list")
	dumpCmd.Flags().BoolVarP(&wantHandles, "handles", "", false, "Dump the handle table")
	dumpCmd.Flags().BoolVarP(&wantStack, "stack", "", false, "Walk and dump the faulting thread's stack")
	dumpCmd.Flags().BoolVarP(&wantAll, "all", "", false, "Dump everything")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
