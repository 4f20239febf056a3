/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stringset

import "sort"

// StringSet is a set of strings.
type StringSet map[string]struct{}

// New builds a set holding the given elements.
func New(elems ...string) StringSet {
	set := NewWithCap(len(elems))
	set.Add(elems...)
	return set
}

// NewWithCap builds an empty set sized for cap elements.
func NewWithCap(cap int) StringSet {
	return make(StringSet, cap)
}

// Add inserts the elements.
func (set StringSet) Add(elems ...string) {
	for _, str := range elems {
		set[str] = struct{}{}
	}
}

// Insert adds str and reports whether it was missing.
func (set StringSet) Insert(str string) bool {
	if set.Contains(str) {
		return false
	}
	set[str] = struct{}{}
	return true
}

// Contains reports whether str is in the set.
func (set StringSet) Contains(str string) bool {
	_, ok := set[str]
	return ok
}

// Sorted returns the elements in ascending order.
func (set StringSet) Sorted() []string {
	if len(set) == 0 {
		return nil
	}
	result := make([]string, 0, len(set))
	for str := range set {
		result = append(result, str)
	}
	sort.Strings(result)
	return result
}
