package plugin

// Outputs holds the files a build will write, keyed by path relative to the
// output directory. Iteration follows first insertion; replacing a file keeps
// its position.
type Outputs struct {
	order []string
	files map[string][]byte
}

// NewOutputs creates an empty output set.
func NewOutputs() *Outputs {
	return &Outputs{files: make(map[string][]byte)}
}

// Set adds or replaces a file.
func (o *Outputs) Set(path string, data []byte) {
	if _, ok := o.files[path]; !ok {
		o.order = append(o.order, path)
	}
	o.files[path] = data
}

// Get returns the content of path.
func (o *Outputs) Get(path string) ([]byte, bool) {
	b, ok := o.files[path]
	return b, ok
}

// Has reports whether path is present.
func (o *Outputs) Has(path string) bool {
	_, ok := o.files[path]
	return ok
}

// Delete removes path.
func (o *Outputs) Delete(path string) {
	if _, ok := o.files[path]; !ok {
		return
	}
	delete(o.files, path)
	for i, p := range o.order {
		if p == path {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// Paths lists the files in insertion order.
func (o *Outputs) Paths() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Len is the number of files.
func (o *Outputs) Len() int { return len(o.order) }

// TotalBytes is the combined size of all files.
func (o *Outputs) TotalBytes() int64 {
	var n int64
	for _, b := range o.files {
		n += int64(len(b))
	}
	return n
}
