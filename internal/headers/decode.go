package headers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
)

// timingKeySuffix marks the timing entries that are reported.
const timingKeySuffix = "t"

// DecodeVersion returns the second whitespace separated token of the named header.
func DecodeVersion(h http.Header, name string) (*string, error) {
	raw, ok := lookup(h, name)
	if !ok {
		return nil, nil
	}

	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: %s has %d token(s), want at least 2", sharedErrors.ErrMalformedHeader, name, len(fields))
	}

	version := fields[1]
	return &version, nil
}

// DecodeTimings parses the named header into timing entries whose key ends in "t".
// One malformed segment fails the whole header.
func DecodeTimings(h http.Header, name string) (map[string]uint16, error) {
	raw, ok := lookup(h, name)
	if !ok {
		return nil, nil
	}

	timings := make(map[string]uint16)
	for _, segment := range strings.Split(raw, ",") {
		if strings.TrimSpace(segment) == "" {
			continue
		}

		key, value, found := strings.Cut(segment, "=")
		if !found {
			return nil, fmt.Errorf("%w: %s segment %q has no '='", sharedErrors.ErrMalformedHeader, name, segment)
		}

		key = strings.TrimSpace(key)
		if !strings.HasSuffix(key, timingKeySuffix) {
			continue
		}

		parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %s value for %q: %v", sharedErrors.ErrMalformedHeader, name, key, err)
		}
		timings[key] = uint16(parsed)
	}

	return timings, nil
}

// lookup reports the first value of a header, distinguishing absent from empty.
func lookup(h http.Header, name string) (string, bool) {
	if h == nil {
		return "", false
	}
	values, ok := h[http.CanonicalHeaderKey(name)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
