package execution

// DictionarySupplier is a restartable sequence of dictionary entries.
type DictionarySupplier interface {
	// NextEntry returns the entry under the cursor and advances it. It returns false once
	// every entry has been handed out.
	NextEntry() (string, bool)

	// Reset moves the cursor back to the first entry.
	Reset()
}

// SliceDictionary supplies the entries of a fixed slice in order.
type SliceDictionary struct {
	entries []string
	cursor  int
}

func NewSliceDictionary(entries ...string) *SliceDictionary {
	return &SliceDictionary{entries: append([]string(nil), entries...)}
}

func (d *SliceDictionary) NextEntry() (string, bool) {
	if d.cursor >= len(d.entries) {
		return "", false
	}
	entry := d.entries[d.cursor]
	d.cursor++
	return entry, true
}

func (d *SliceDictionary) Reset() {
	d.cursor = 0
}

func (d *SliceDictionary) Len() int {
	return len(d.entries)
}
