package files

import (
	"slices"
	"strings"
)

// extLen is the number of trailing characters compared against the allow-list.
// The comparison is literal, so ".jpeg" and ".PNG" never match.
const extLen = 4

// AllowedExtensions lists the suffixes accepted by Push.
var AllowedExtensions = []string{".png", ".jpg", ".gif", ".pdf"}

// InputFile is a validated input path.
type InputFile string

// Path returns the file path as a plain string.
func (f InputFile) Path() string { return string(f) }

// IsPDF reports whether the file was accepted as a PDF document.
func (f InputFile) IsPDF() bool { return strings.HasSuffix(string(f), ".pdf") }

// Accepts reports whether path carries one of the allowed extensions.
func Accepts(path string) bool {
	if len(path) < extLen {
		return false
	}
	return slices.Contains(AllowedExtensions, path[len(path)-extLen:])
}

// Stack is the ordered history of validated input files. The last element is
// the current file. It is not safe for concurrent use; the owning session
// serialises access.
type Stack struct {
	files []InputFile
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push appends path if its extension is allowed and reports whether it was added.
// Rejected paths are dropped silently.
func (s *Stack) Push(path string) bool {
	if !Accepts(path) {
		return false
	}
	s.files = append(s.files, InputFile(path))
	return true
}

// PushAll pushes each path in order and returns how many were accepted.
func (s *Stack) PushAll(paths []string) int {
	n := 0
	for _, p := range paths {
		if s.Push(p) {
			n++
		}
	}
	return n
}

// Current returns the most recently pushed file. The boolean is false when no
// file has been loaded yet.
func (s *Stack) Current() (InputFile, bool) {
	if len(s.files) == 0 {
		return "", false
	}
	return s.files[len(s.files)-1], true
}

// Len returns the number of files pushed so far.
func (s *Stack) Len() int { return len(s.files) }

// Files returns a copy of the stack in insertion order.
func (s *Stack) Files() []InputFile {
	return slices.Clone(s.files)
}
