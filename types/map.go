/* license: https://mit-license.org
 *
 *  Dao-Ke-Dao: Universal Message Module
 *
 *                                Written in 2020 by Moky <albert.moky@gmail.com>
 *
 * ==============================================================================
 * The MIT License (MIT)
 *
 * Copyright (c) 2020 Albert Moky
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
 * ==============================================================================
 */

// Package types holds the shared map/dictionary plumbing that every model
// object in this module (Content, Envelope, Meta, Document, ...) is built
// on top of: every wire object is, underneath, a StringKeyMap, and the
// typed wrapper is a lazily-populated view over it.
package types

// StringKeyMap is the canonical shape of every object this module puts on
// the wire: a JSON object with string keys.
type StringKeyMap = map[string]interface{}

// Map is implemented by every typed wrapper (Content, Envelope, Meta, ...)
// so that callers can always fall back to the raw dictionary underneath.
type Map interface {
	// GetMap returns the underlying dictionary.
	//
	// If clone is true the caller receives a shallow copy it may mutate
	// freely; if false, callers must treat the result as read-only.
	GetMap(clone bool) StringKeyMap

	Get(key string) interface{}
	Set(key string, value interface{})
}

// Dictionary is the common base embedded by typed wrappers.
type Dictionary struct {
	dictionary StringKeyMap
}

func NewDictionary(dict StringKeyMap) Dictionary {
	if dict == nil {
		dict = make(StringKeyMap)
	}
	return Dictionary{dictionary: dict}
}

func (d *Dictionary) GetMap(clone bool) StringKeyMap {
	if clone {
		return CopyMap(d.dictionary)
	}
	return d.dictionary
}

func (d *Dictionary) Get(key string) interface{} {
	return d.dictionary[key]
}

func (d *Dictionary) Set(key string, value interface{}) {
	if value == nil {
		delete(d.dictionary, key)
	} else {
		d.dictionary[key] = value
	}
}

// CopyMap returns a shallow copy of origin.
func CopyMap(origin StringKeyMap) StringKeyMap {
	clone := make(StringKeyMap, len(origin))
	for key, value := range origin {
		clone[key] = value
	}
	return clone
}

// ValueIsNil reports whether value is a Go nil or an untyped nil
// interface{}, the two ways "absent" shows up after a JSON round-trip.
func ValueIsNil(value interface{}) bool {
	return value == nil
}

// FetchMap coerces value (a Map wrapper, a StringKeyMap, or nil) into a
// StringKeyMap, panicking on anything else — this is only ever called on
// data this process produced or already validated as JSON-shaped.
func FetchMap(value interface{}) StringKeyMap {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case Map:
		return v.GetMap(false)
	case StringKeyMap:
		return v
	default:
		panic(value)
	}
}

// FetchList coerces value into a []interface{}, accepting nil.
func FetchList(value interface{}) []interface{} {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []interface{}:
		return v
	default:
		panic(value)
	}
}

// GetString reads a string field, returning "" when absent.
func (d *Dictionary) GetString(key string) string {
	value := d.dictionary[key]
	if value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}
