package wrapped

import "errors"

var (
	// ErrMalformedArchive reports input that is not valid structured data, or content
	// nesting / parent chains that do not terminate. No partial corpus accompanies it.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrEmptyCorpus reports a well-formed archive with zero timestamped messages.
	ErrEmptyCorpus = errors.New("empty corpus: archive has no timestamped user/assistant messages")

	// ErrEmptyFilteredRange reports a date range that excludes every corpus row.
	ErrEmptyFilteredRange = errors.New("empty range: no messages in the selected dates")
)
