/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
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

// Package logger provides the structured logging the daemon and client
// coordinator log through, instead of fmt.Println or the bare log package.
package logger

import (
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
)

// Logger is the interface the daemon core and client coordinator depend on.
type Logger interface {
	// SetLevel changes the minimal level of logged entries.
	SetLevel(lvl Level)
	// GetLevel returns the minimal level of logged entries.
	GetLevel() Level
	// Entry starts building a new log record at the given level.
	Entry(lvl Level, message string) Entry
	// Named returns a child logger prefixed with the given component name,
	// the way hclog.Logger.Named does.
	Named(name string) Logger
	// StdLog returns a standard library *log.Logger backed by this logger,
	// for the few call sites that only accept that interface.
	StdLog() *log.Logger
}

type lgr struct {
	mu  sync.RWMutex
	lvl Level
	hc  hclog.Logger
}

// New returns a Logger named for the given component, colorized when
// attached to a terminal.
func New(name string) Logger {
	colorize := hclog.ColorOff
	if isatty.IsTerminal(os.Stdout.Fd()) && color.NoColor == false {
		colorize = hclog.AutoColor
	}

	l := &lgr{
		lvl: InfoLevel,
		hc: hclog.New(&hclog.LoggerOptions{
			Name:  name,
			Level: InfoLevel.HCLog(),
			Color: colorize,
		}),
	}

	return l
}

func (l *lgr) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lvl = lvl
	l.hc.SetLevel(lvl.HCLog())
}

func (l *lgr) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.lvl
}

func (l *lgr) Entry(lvl Level, message string) Entry {
	l.mu.RLock()
	hc := l.hc
	l.mu.RUnlock()

	return &entry{l: hc, lvl: lvl, msg: message}
}

func (l *lgr) Named(name string) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return &lgr{lvl: l.lvl, hc: l.hc.Named(name)}
}

func (l *lgr) StdLog() *log.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.hc.StandardLogger(&hclog.StandardLoggerOptions{})
}
