package history

// DefaultCapacity is the number of finalized sentences kept.
const DefaultCapacity = 5

// Entry is one finalized sentence with its corrected and enhanced forms.
type Entry struct {
	Original  string `json:"original" yaml:"original"`
	Corrected string `json:"corrected" yaml:"corrected"`
	Enhanced  string `json:"enhanced" yaml:"enhanced"`
}

// Unenhanced builds the entry used when enhancement failed.
func Unenhanced(text string) Entry {
	return Entry{Original: text, Corrected: text, Enhanced: text}
}

// List is a bounded, newest-first, deduplicated history.
// It is not safe for concurrent use.
type List struct {
	capacity int
	entries  []Entry
}

func NewList(capacity int) *List {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &List{capacity: capacity, entries: make([]Entry, 0, capacity+1)}
}

// Add prepends e unless an identical entry is already present. It returns
// false when e was a duplicate.
func (l *List) Add(e Entry) bool {
	for _, existing := range l.entries {
		if existing == e {
			return false
		}
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	return true
}

// Entries returns a copy, newest first.
func (l *List) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *List) Len() int { return len(l.entries) }
