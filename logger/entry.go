/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package logger

import "github.com/hashicorp/go-hclog"

// Entry is a single log record under construction. Field/ErrorAdd chain,
// then Log flushes:
//
//	l.Entry(logger.InfoLevel, "daemon listening").Field("port", port).Log()
type Entry interface {
	// Field attaches a structured key/value pair to the entry.
	Field(key string, value interface{}) Entry
	// ErrorAdd attaches err to the entry if non-nil. When override is true
	// and the entry's level is below ErrorLevel, the level is raised to
	// ErrorLevel - matching CheckError-style call sites that don't know in
	// advance whether the operation failed.
	ErrorAdd(override bool, err error) Entry
	// Log emits the entry through the underlying hclog sink. A no-op entry
	// (nil receiver, or level filtered out) is safe to call Log on.
	Log()
}

type entry struct {
	l   hclog.Logger
	lvl Level
	msg string
	kv  []interface{}
}

func (e *entry) Field(key string, value interface{}) Entry {
	if e == nil {
		return e
	}

	e.kv = append(e.kv, key, value)
	return e
}

func (e *entry) ErrorAdd(override bool, err error) Entry {
	if e == nil || err == nil {
		return e
	}

	e.kv = append(e.kv, "error", err.Error())

	if override && e.lvl > ErrorLevel {
		e.lvl = ErrorLevel
	}

	return e
}

func (e *entry) Log() {
	if e == nil || e.l == nil {
		return
	}

	switch e.lvl {
	case DebugLevel:
		e.l.Debug(e.msg, e.kv...)
	case InfoLevel:
		e.l.Info(e.msg, e.kv...)
	case WarnLevel:
		e.l.Warn(e.msg, e.kv...)
	case ErrorLevel, FatalLevel, PanicLevel:
		e.l.Error(e.msg, e.kv...)
	}
}
