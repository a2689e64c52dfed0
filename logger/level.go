/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package logger

import (
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Level is a uint8 type customized with functions to log a message at the
// current log level, mapped onto hclog's level scale.
type Level uint8

const (
	// PanicLevel is the most severe level; it is logged at hclog's error
	// level and Log does not panic.
	PanicLevel Level = iota
	// FatalLevel is logged at hclog's error level; Log does not exit the
	// process.
	FatalLevel
	// ErrorLevel means the caller stops its current operation.
	ErrorLevel
	// WarnLevel means the caller continues despite the condition.
	WarnLevel
	// InfoLevel is informational only.
	InfoLevel
	// DebugLevel is only useful to diagnose a problem.
	DebugLevel
	// NilLevel disables logging entirely; never used to filter incoming entries.
	NilLevel
)

// String converts the Level to a human label.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	case PanicLevel:
		return "panic"
	case NilLevel:
		return ""
	}

	return "unknown"
}

// GetLevelString returns the Level matching the given string, defaulting to
// InfoLevel when the string doesn't match any known level.
func GetLevelString(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	case "panic":
		return PanicLevel
	case "nil", "off", "silent":
		return NilLevel
	}

	return InfoLevel
}

// HCLog converts the Level to the closest hclog.Level.
func (l Level) HCLog() hclog.Level {
	switch l {
	case DebugLevel:
		return hclog.Debug
	case InfoLevel:
		return hclog.Info
	case WarnLevel:
		return hclog.Warn
	case ErrorLevel, FatalLevel, PanicLevel:
		return hclog.Error
	case NilLevel:
		return hclog.Off
	}

	return hclog.Info
}
