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

// Package config is the client-side service descriptor spec.md §3
// describes, validated with struct tags the way nabbar-golib's config
// components validate their decoded models.
package config

import (
	"time"

	validator "github.com/go-playground/validator/v10"
)

// Descriptor is the immutable, client-side description of a named
// singleton service (spec.md §3, "Service descriptor").
type Descriptor struct {
	// Name addresses the singleton; first client to request it spawns the
	// daemon.
	Name string `mapstructure:"name" validate:"required"`
	// FactoryImport, FactoryArgs and FactoryKwargs together are the opaque
	// factory description handed to the daemon (spec.md §9).
	FactoryImport  string                 `mapstructure:"factory_import" validate:"required"`
	FactoryArgs    []interface{}          `mapstructure:"factory_args"`
	FactoryKwargs  map[string]interface{} `mapstructure:"factory_kwargs"`
	// IdleTTL is the duration of zero active connections, after at least
	// one handshake, after which the daemon self-terminates.
	IdleTTL time.Duration `mapstructure:"idle_ttl" validate:"required,gt=0"`
	// Codec names the wire codec (spec.md §3); resolved via codec.ByName.
	Codec string `mapstructure:"codec" validate:"required"`
	// Scope is always "user" today (spec.md §1 Non-goals).
	Scope string `mapstructure:"scope" validate:"required,eq=user"`
	// ConnectTimeout bounds a single connect_once attempt.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"required,gt=0"`
	// StartTimeout bounds the connect_or_spawn poll loop (spec.md §4.5).
	StartTimeout time.Duration `mapstructure:"start_timeout" validate:"required,gt=0"`
}

var validate = validator.New()

// Default returns a Descriptor for name/factoryImport with the reference
// implementation's defaults applied, ready for the caller to further
// customize before calling Validate.
func Default(name, factoryImport string) Descriptor {
	return Descriptor{
		Name:           name,
		FactoryImport:  factoryImport,
		FactoryArgs:    nil,
		FactoryKwargs:  nil,
		IdleTTL:        5 * time.Minute,
		Codec:          "cbor",
		Scope:          "user",
		ConnectTimeout: 2 * time.Second,
		StartTimeout:   10 * time.Second,
	}
}

// Validate checks the struct tags above via go-playground/validator.
func (d Descriptor) Validate() error {
	return validate.Struct(d)
}
