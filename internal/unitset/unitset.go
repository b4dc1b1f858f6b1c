// Package unitset provides a bitmap of processing-unit identifiers with
// deterministic, ascending iteration order.
package unitset

import (
	"strconv"
	"strings"
)

const wordBits = 64

// Set is a growable bitmap of non-negative unit identifiers.
// The zero value is an empty set ready for use.
type Set struct {
	words []uint64
}

func New() *Set {
	return &Set{}
}

// FromMembers builds a set containing exactly the given units.
func FromMembers(units ...int) *Set {
	s := New()
	for _, u := range units {
		s.Add(u)
	}
	return s
}

func (s *Set) grow(word int) {
	for len(s.words) <= word {
		s.words = append(s.words, 0)
	}
}

func (s *Set) Add(unit int) {
	if unit < 0 {
		return
	}
	word := unit / wordBits
	s.grow(word)
	s.words[word] |= 1 << uint(unit%wordBits)
}

// AddRange adds every unit in [start, end] inclusive.
func (s *Set) AddRange(start, end int) {
	if start < 0 {
		start = 0
	}
	for u := start; u <= end; u++ {
		s.Add(u)
	}
}

func (s *Set) Remove(unit int) {
	if unit < 0 {
		return
	}
	word := unit / wordBits
	if word >= len(s.words) {
		return
	}
	s.words[word] &^= 1 << uint(unit%wordBits)
}

func (s *Set) Has(unit int) bool {
	if unit < 0 {
		return false
	}
	word := unit / wordBits
	if word >= len(s.words) {
		return false
	}
	return s.words[word]&(1<<uint(unit%wordBits)) != 0
}

// Union adds every member of other to s.
func (s *Set) Union(other *Set) {
	if other == nil {
		return
	}
	s.grow(len(other.words) - 1)
	for i, w := range other.words {
		s.words[i] |= w
	}
}

// Weight returns the number of members.
func (s *Set) Weight() int {
	count := 0
	for _, w := range s.words {
		for ; w != 0; w &= w - 1 {
			count++
		}
	}
	return count
}

func (s *Set) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// First returns the smallest member, or -1 when the set is empty.
func (s *Set) First() int {
	return s.Next(-1)
}

// Next returns the smallest member strictly greater than unit,
// or -1 when no such member exists.
func (s *Set) Next(unit int) int {
	start := unit + 1
	if start < 0 {
		start = 0
	}
	for u := start; u/wordBits < len(s.words); u++ {
		word := s.words[u/wordBits]
		if word == 0 {
			u = (u/wordBits+1)*wordBits - 1
			continue
		}
		if word&(1<<uint(u%wordBits)) != 0 {
			return u
		}
	}
	return -1
}

// Members returns all members in ascending order.
func (s *Set) Members() []int {
	members := make([]int, 0, s.Weight())
	for u := s.First(); u >= 0; u = s.Next(u) {
		members = append(members, u)
	}
	return members
}

// Singlify reduces the set to its smallest member.
func (s *Set) Singlify() {
	first := s.First()
	for i := range s.words {
		s.words[i] = 0
	}
	if first >= 0 {
		s.Add(first)
	}
}

// Decimate keeps the first keep members in ascending order and clears the
// rest. Sets with keep or fewer members are left untouched.
func (s *Set) Decimate(keep int) {
	if keep < 0 {
		keep = 0
	}
	if s.Weight() <= keep {
		return
	}
	remaining := keep
	for u := s.First(); u >= 0; u = s.Next(u) {
		if remaining > 0 {
			remaining--
			continue
		}
		s.Remove(u)
	}
}

func (s *Set) Clone() *Set {
	clone := New()
	clone.words = make([]uint64, len(s.words))
	copy(clone.words, s.words)
	return clone
}

func (s *Set) Equal(other *Set) bool {
	if other == nil {
		return s.IsEmpty()
	}
	longest := len(s.words)
	if len(other.words) > longest {
		longest = len(other.words)
	}
	for i := 0; i < longest; i++ {
		var a, b uint64
		if i < len(s.words) {
			a = s.words[i]
		}
		if i < len(other.words) {
			b = other.words[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

// String renders the set as sorted ranges, e.g. "0-3,8,10-11".
func (s *Set) String() string {
	members := s.Members()
	if len(members) == 0 {
		return ""
	}

	parts := make([]string, 0, len(members))
	start := members[0]
	prev := members[0]
	for _, unit := range members[1:] {
		if unit == prev+1 {
			prev = unit
			continue
		}
		parts = append(parts, formatRange(start, prev))
		start = unit
		prev = unit
	}
	parts = append(parts, formatRange(start, prev))

	return strings.Join(parts, ",")
}

// Join renders up to limit members as a comma-separated list in
// ascending order. A negative limit means no limit.
func (s *Set) Join(limit int) string {
	var b strings.Builder
	count := 0
	for u := s.First(); u >= 0; u = s.Next(u) {
		if limit >= 0 && count >= limit {
			break
		}
		if count > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(u))
		count++
	}
	return b.String()
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}
