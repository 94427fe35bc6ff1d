package dataset

import "sort"

// IdentifierSet is an unordered collection of unique identifiers.
type IdentifierSet map[string]struct{}

// NewIdentifierSet 以给定标识符构建集合，重复项自动合并。
func NewIdentifierSet(ids ...string) IdentifierSet {
	set := make(IdentifierSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

// Add 加入一个标识符。
func (s IdentifierSet) Add(id string) {
	s[id] = struct{}{}
}

// Contains 判断标识符是否存在。
func (s IdentifierSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len 返回集合大小。
func (s IdentifierSet) Len() int {
	return len(s)
}

// Sorted returns the identifiers in lexical order.
func (s IdentifierSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
