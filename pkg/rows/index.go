package rows

// Index is an insertion-ordered set of labels (tag names or topic titles).
// Each label is held once; Labels reports them in first-seen order.
type Index struct {
	labels []string
	seen   map[string]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{seen: make(map[string]struct{})}
}

// Add inserts label and reports whether it was new. Empty labels are ignored.
func (ix *Index) Add(label string) bool {
	if label == "" {
		return false
	}
	if ix.seen == nil {
		ix.seen = make(map[string]struct{})
	}
	if _, ok := ix.seen[label]; ok {
		return false
	}
	ix.seen[label] = struct{}{}
	ix.labels = append(ix.labels, label)
	return true
}

// Contains reports whether label is in the index.
func (ix *Index) Contains(label string) bool {
	if ix == nil {
		return false
	}
	_, ok := ix.seen[label]
	return ok
}

// Len returns the number of distinct labels.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.labels)
}

// Labels returns a copy of the labels in first-seen order.
func (ix *Index) Labels() []string {
	if ix == nil {
		return nil
	}
	return append([]string(nil), ix.labels...)
}
