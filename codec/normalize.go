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

package codec

// Normalize recursively rewrites values decoded from a CBOR map into an
// interface{} target. fxamacker/cbor decodes CBOR maps into
// map[interface{}]interface{} since CBOR keys aren't restricted to
// strings; every map this protocol ever puts on the wire (kwargs,
// PING/SHUTDOWN reply bodies) uses string keys, so Normalize converts them
// to map[string]interface{} for callers that don't want to deal with the
// more permissive decoded shape.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = Normalize(val)
			}
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}

// AsStringMap normalizes v and type-asserts it to map[string]interface{},
// returning an empty map if v is nil or not map-shaped.
func AsStringMap(v interface{}) map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	if m, ok := Normalize(v).(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// AsSlice normalizes v and type-asserts it to []interface{}, returning an
// empty slice if v is nil or not slice-shaped.
func AsSlice(v interface{}) []interface{} {
	if v == nil {
		return []interface{}{}
	}
	if s, ok := Normalize(v).([]interface{}); ok {
		return s
	}
	return []interface{}{}
}

// AsInt normalizes the numeric types a CBOR decode into interface{} can
// produce (uint64 for non-negative integers, int64 for negative ones) into
// a plain int. Non-numeric values return 0.
func AsInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	default:
		return 0
	}
}
