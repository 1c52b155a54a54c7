package core

import (
	"path/filepath"
	"runtime"
	"strings"
)

// CallerInfo contains information about the call site that produced a message
type CallerInfo struct {
	File     string
	Line     int
	Function string
	Defined  bool
}

// GetCaller retrieves caller information skip frames above its own caller
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return CallerInfo{}
	}

	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}

	return CallerInfo{
		File:     file,
		Line:     line,
		Function: funcName,
		Defined:  true,
	}
}

// FileName returns the last element of path without its extension,
// e.g. "/src/app/server.go" becomes "server".
func FileName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
