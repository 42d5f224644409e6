package mail

import "slices"

// TokenStack holds the page tokens consumed to reach each visited page past
// page 1, oldest first. Under sequential navigation len == Page-1.
type TokenStack []string

// Push returns a stack with token on top.
func (s TokenStack) Push(token string) TokenStack {
	return append(s.Clone(), token)
}

// Pop returns the stack without its top and the removed token.
func (s TokenStack) Pop() (TokenStack, string, bool) {
	if len(s) == 0 {
		return s, "", false
	}
	top := s[len(s)-1]
	return slices.Clone(s[:len(s)-1]), top, true
}

// Top returns the most recently pushed token.
func (s TokenStack) Top() (string, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

func (s TokenStack) Len() int {
	return len(s)
}

func (s TokenStack) Clone() TokenStack {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}
