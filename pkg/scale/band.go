package scale

// Band assigns each key a fixed-height slot in the order the keys were
// given. Duplicate keys keep their first slot.
type Band struct {
	index   map[string]int
	keys    []string
	step    float64
	padding float64
}

// NewBand returns a band scale with one slot of height step per key.
// padding is the fraction of each step left empty, split evenly above and
// below the band.
func NewBand(keys []string, step, padding float64) Band {
	b := Band{index: make(map[string]int, len(keys)), step: step, padding: padding}
	for _, k := range keys {
		if _, ok := b.index[k]; ok {
			continue
		}
		b.index[k] = len(b.keys)
		b.keys = append(b.keys, k)
	}
	return b
}

// Map returns the top edge of key's band.
func (b Band) Map(key string) (float64, bool) {
	i, ok := b.index[key]
	if !ok {
		return 0, false
	}
	return float64(i)*b.step + b.step*b.padding/2, true
}

// Index returns the slot position of key.
func (b Band) Index(key string) (int, bool) {
	i, ok := b.index[key]
	return i, ok
}

// Bandwidth returns the drawn height of one band.
func (b Band) Bandwidth() float64 { return b.step * (1 - b.padding) }

// Step returns the distance between consecutive band tops.
func (b Band) Step() float64 { return b.step }

// Len returns the number of slots.
func (b Band) Len() int { return len(b.keys) }

// Keys returns the slot keys in order.
func (b Band) Keys() []string { return append([]string(nil), b.keys...) }

// Extent returns the total content height.
func (b Band) Extent() float64 { return float64(len(b.keys)) * b.step }
