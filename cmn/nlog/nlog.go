// Package nlog is corehive's structured leveled logger: the same
// Infof/Warningf/Errorf is the familiar leveled-logger surface, stripped of
// file rotation and buffering (this module has no durable-storage
// component to flush to — see DESIGN.md).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
)

type severity int32

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var (
	mu    sync.Mutex
	std   = log.New(os.Stderr, "", 0)
	level atomic.Int32 // minimum severity emitted; defaults to sevInfo
	title string
)

func SetTitle(s string) { title = s }

func sevStr(s severity) string {
	switch s {
	case sevWarn:
		return "W"
	case sevErr:
		return "E"
	default:
		return "I"
	}
}

func emit(sev severity, depth int, format string, args ...any) {
	if severity(level.Load()) > sev {
		return
	}
	var line string
	if format == "" {
		line = fmt.Sprintln(args...)
	} else {
		line = fmt.Sprintf(format, args...)
	}
	_, file, ln, ok := runtime.Caller(depth + 2)
	if !ok {
		file, ln = "???", 0
	} else if i := lastSlash(file); i >= 0 {
		file = file[i+1:]
	}
	prefix := sevStr(sev)
	if title != "" {
		prefix = prefix + " " + title
	}
	mu.Lock()
	std.Printf("%s %s:%d] %s", prefix, file, ln, line)
	mu.Unlock()
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func InfoDepth(depth int, args ...any)    { emit(sevInfo, depth, "", args...) }
func Infoln(args ...any)                  { emit(sevInfo, 0, "", args...) }
func Infof(format string, args ...any)    { emit(sevInfo, 0, format, args...) }
func Warningln(args ...any)               { emit(sevWarn, 0, "", args...) }
func Warningf(format string, args ...any) { emit(sevWarn, 0, format, args...) }
func ErrorDepth(depth int, args ...any)   { emit(sevErr, depth, "", args...) }
func Errorln(args ...any)                 { emit(sevErr, 0, "", args...) }
func Errorf(format string, args ...any)   { emit(sevErr, 0, format, args...) }

// SetQuiet raises the minimum emitted severity to Warning, used by tests
// that otherwise drown in per-item queue tracing.
func SetQuiet(quiet bool) {
	if quiet {
		level.Store(int32(sevWarn))
	} else {
		level.Store(int32(sevInfo))
	}
}
