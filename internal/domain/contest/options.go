package contest

import "strings"

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithHeaderTolerance sets the Levenshtein distance accepted when matching
// identifier headers of eight or more runes. Zero disables fuzzy matching.
func WithHeaderTolerance(d int) IngestorOption {
	return func(in *Ingestor) {
		if d >= 0 {
			in.tolerance = d
		}
	}
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithPolicy sets how repeated appearances of a student are combined.
func WithPolicy(p Policy) AggregatorOption {
	return func(a *Aggregator) {
		if p != "" {
			a.policy = p
		}
	}
}

// WithExtensions replaces the file extension allowlist.
func WithExtensions(exts ...string) AggregatorOption {
	return func(a *Aggregator) {
		if len(exts) == 0 {
			return
		}
		a.extensions = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			a.extensions[e] = struct{}{}
		}
	}
}

// WithRecursive walks contest directories when true, reads only the top level otherwise.
func WithRecursive(recursive bool) AggregatorOption {
	return func(a *Aggregator) {
		a.recursive = recursive
	}
}

// WithPerContestNormalize rescales each file to 0-100 by its own maximum before combining.
func WithPerContestNormalize(enabled bool) AggregatorOption {
	return func(a *Aggregator) {
		a.perContest = enabled
	}
}

// WithConcurrency bounds the number of files read in parallel.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}
