package report

import (
	"encoding/json"
	"net/netip"
)

// Report is the fixed-shape diagnostic record for one domain. All JSON keys
// except field_errors are always emitted; absent optional values are null.
type Report struct {
	// HTTPStatus is 0 when the HTTP probe could not complete.
	HTTPStatus uint16 `json:"http_status"`
	// CertValid is true iff a certificate was retrieved and has not expired.
	CertValid bool `json:"cert_valid"`
	// LayerVersion is nil unless the version header was present and well formed.
	LayerVersion *string `json:"layer_version"`
	// LayerTimings is nil unless the timing header was present and well formed.
	LayerTimings map[string]uint16 `json:"layer_timings"`
	IPs          []netip.Addr      `json:"ips"`
	// FieldErrors holds field-scoped decode errors under the strict header policy.
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Reachable reports whether the HTTP probe obtained a response.
func (r Report) Reachable() bool {
	return r.HTTPStatus != 0
}

// MarshalJSON keeps ips an array even for a zero Report.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	if r.IPs == nil {
		r.IPs = []netip.Addr{}
	}
	return json.Marshal(plain(r))
}
