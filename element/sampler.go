package element

// Metrics are the computed layout values a host reports, in CSS pixels.
type Metrics struct {
	FontSize     float64
	ContentWidth float64
	LineHeight   float64
}

// Sample is what one render attempt asks the compiler for.
type Sample struct {
	Size     float64
	FontSize float64
}

// Measure picks the size for the given mode: the content width for display
// elements and the line height for inline ones.
func Measure(m Metrics, display bool) Sample {
	s := Sample{Size: m.LineHeight, FontSize: m.FontSize}
	if display {
		s.Size = m.ContentWidth
	}
	return s
}

// Usable is false for the zero, negative or NaN values a host reports while
// it is not laid out. Such a sample means "skip", never "fail".
func (s Sample) Usable() bool {
	return s.Size > 0 && s.FontSize > 0
}
