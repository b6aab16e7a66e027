package sheet

// Option configures a Reader.
type Option func(*Reader)

// WithSheet reads the named sheet instead of the first one.
func WithSheet(name string) Option {
	return func(r *Reader) {
		r.sheet = name
	}
}

// WithComma sets the CSV field delimiter.
func WithComma(c rune) Option {
	return func(r *Reader) {
		if c != 0 {
			r.comma = c
		}
	}
}
