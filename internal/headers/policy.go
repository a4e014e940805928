package headers

import (
	"fmt"
	"net/http"
	"strings"

	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/domaindiag/internal/shared/errors"
)

// Policy selects how a malformed vendor header is surfaced.
type Policy int

const (
	// PolicyAbsent treats a malformed header exactly like a missing one.
	PolicyAbsent Policy = iota
	// PolicyStrict leaves the field absent but reports a field-scoped error.
	PolicyStrict
)

// String returns the config/flag spelling of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	default:
		return "absent"
	}
}

// ParsePolicy converts a flag or config value into a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "absent":
		return PolicyAbsent, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyAbsent, fmt.Errorf("%w: %q (want absent or strict)", sharedErrors.ErrInvalidPolicy, value)
	}
}

// Field names used as keys for field-scoped errors.
const (
	FieldLayerVersion = "layer_version"
	FieldLayerTimings = "layer_timings"
)

// Result is the outcome of decoding both vendor headers from one response.
type Result struct {
	Version *string
	Timings map[string]uint16
	// Errors is keyed by field name and only populated under PolicyStrict.
	Errors map[string]string
}

// Decoder applies both header decoders under a single policy.
type Decoder struct {
	VersionHeader string
	TimingHeader  string
	Policy        Policy
}

// NewDecoder returns a decoder for the default header names.
func NewDecoder(policy Policy) Decoder {
	return Decoder{
		VersionHeader: consts.VersionHeader,
		TimingHeader:  consts.TimingHeader,
		Policy:        policy,
	}
}

// Decode decodes both headers. Failures only ever affect their own field.
func (d Decoder) Decode(h http.Header) Result {
	var result Result

	versionHeader := d.VersionHeader
	if versionHeader == "" {
		versionHeader = consts.VersionHeader
	}
	timingHeader := d.TimingHeader
	if timingHeader == "" {
		timingHeader = consts.TimingHeader
	}

	version, err := DecodeVersion(h, versionHeader)
	if err != nil {
		d.recordError(&result, FieldLayerVersion, err)
	} else {
		result.Version = version
	}

	timings, err := DecodeTimings(h, timingHeader)
	if err != nil {
		d.recordError(&result, FieldLayerTimings, err)
	} else {
		result.Timings = timings
	}

	return result
}

func (d Decoder) recordError(result *Result, field string, err error) {
	if d.Policy != PolicyStrict {
		return
	}
	if result.Errors == nil {
		result.Errors = make(map[string]string)
	}
	result.Errors[field] = err.Error()
}
