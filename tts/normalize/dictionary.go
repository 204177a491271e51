package normalize

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one pronunciation rule.
type Entry struct {
	Key   string
	Value string
}

// Dictionary is an ordered set of literal replacements. Rules apply in
// insertion order, so overlapping keys give order-dependent results.
type Dictionary struct {
	entries []Entry
	index   map[string]int
}

// NewDictionary returns a dictionary holding entries in the given order.
func NewDictionary(entries ...Entry) *Dictionary {
	d := &Dictionary{index: make(map[string]int)}
	for _, e := range entries {
		d.Set(e.Key, e.Value)
	}
	return d
}

// Set adds or updates a rule. Updating keeps the rule's original position.
func (d *Dictionary) Set(key, value string) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[key]; ok {
		d.entries[i].Value = value
		return
	}
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, Entry{Key: key, Value: value})
}

// Get returns the replacement for key.
func (d *Dictionary) Get(key string) (string, bool) {
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.entries[i].Value, true
}

// Delete removes key and reports whether it was present.
func (d *Dictionary) Delete(key string) bool {
	i, ok := d.index[key]
	if !ok {
		return false
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.entries); j++ {
		d.index[d.entries[j].Key] = j
	}
	return true
}

// Len returns the number of rules.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the rules in application order.
func (d *Dictionary) Entries() []Entry {
	if d == nil {
		return nil
	}
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Clone returns an independent copy.
func (d *Dictionary) Clone() *Dictionary {
	return NewDictionary(d.Entries()...)
}

// Apply replaces every occurrence of each key, one rule after another.
func (d *Dictionary) Apply(text string) string {
	if d == nil {
		return text
	}
	for _, e := range d.entries {
		if e.Key == "" {
			continue
		}
		text = strings.ReplaceAll(text, e.Key, e.Value)
	}
	return text
}

// ParseDictionary reads "key: value" lines. Lines without a colon are
// ignored; only the first colon separates key from value.
func ParseDictionary(r io.Reader) (*Dictionary, error) {
	d := NewDictionary()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		d.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return d, nil
}

// LoadDictionary reads a dictionary file. A missing file yields an empty
// dictionary.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewDictionary(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return ParseDictionary(f)
}

// WriteTo writes the dictionary in its file format.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range d.entries {
		n, err := fmt.Fprintf(w, "%s: %s\n", e.Key, e.Value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Save writes the dictionary to path, replacing it atomically.
func (d *Dictionary) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dictionary dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dict-*")
	if err != nil {
		return fmt.Errorf("create temp dictionary: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := d.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write dictionary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dictionary: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dictionary: %w", err)
	}
	return nil
}
