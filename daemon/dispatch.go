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

package daemon

import (
	"fmt"
	"reflect"
	"strings"
)

// dispatch invokes method on obj with args, reflecting on the exported
// method set of the constructed singleton the way the proxy's attribute
// lookup addresses it by name (spec.md §9, "reflection-driven factory" —
// the same principle applied one level up, to method dispatch rather than
// construction). Go exports methods by capitalization, so a lowercase
// wire method name ("inc", "fail") is also tried capitalized ("Inc",
// "Fail") before giving up.
//
// Supported return signatures: (), (T), (error), (T, error). Keyword
// arguments are not supported by reflected dispatch; a non-empty kwargs
// is rejected the same way an arity mismatch is.
func dispatch(obj interface{}, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("method %s: keyword arguments are not supported", method)
	}

	v := reflect.ValueOf(obj)
	m := resolveMethod(v, method)
	if !m.IsValid() {
		return nil, fmt.Errorf("unknown method: %s", method)
	}

	mt := m.Type()
	if mt.IsVariadic() {
		if len(args) < mt.NumIn()-1 {
			return nil, fmt.Errorf("method %s expects at least %d arguments, got %d", method, mt.NumIn()-1, len(args))
		}
	} else if mt.NumIn() != len(args) {
		return nil, fmt.Errorf("method %s expects %d arguments, got %d", method, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		want := mt.In(minInt(i, mt.NumIn()-1))
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			want = want.Elem()
		}

		av, err := coerce(a, want)
		if err != nil {
			return nil, fmt.Errorf("method %s: argument %d: %w", method, i, err)
		}
		in[i] = av
	}

	out := m.Call(in)
	return interpretResult(out)
}

func resolveMethod(v reflect.Value, name string) reflect.Value {
	if m := v.MethodByName(name); m.IsValid() {
		return m
	}
	if name == "" {
		return reflect.Value{}
	}
	exported := strings.ToUpper(name[:1]) + name[1:]
	return v.MethodByName(exported)
}

func coerce(a interface{}, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(want), nil
	}

	av := reflect.ValueOf(a)
	if av.Type().ConvertibleTo(want) {
		return av.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, want)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func isErrorType(t reflect.Type) bool { return t.Implements(errorType) }

// errValue extracts a non-nil error from v, which is statically known (by
// isErrorType) to implement the error interface.
func errValue(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Chan, reflect.Func, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
	}
	err, _ := v.Interface().(error)
	return err
}

func interpretResult(out []reflect.Value) (interface{}, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if isErrorType(out[0].Type()) {
			return nil, errValue(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		res := out[0].Interface()
		if isErrorType(out[1].Type()) {
			if err := errValue(out[1]); err != nil {
				return nil, err
			}
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported method signature: %d return values", len(out))
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
