package probe

import "testing"

func TestParseTarget(t *testing.T) {
	testCases := []struct {
		name     string
		target   string
		wantHost string
		wantPort string
		wantURL  string
	}{
		{
			name:     "Simple domain",
			target:   "example.com",
			wantHost: "example.com",
			wantURL:  "http://example.com",
		},
		{
			name:     "HTTP URL is kept",
			target:   "http://example.com",
			wantHost: "example.com",
			wantURL:  "http://example.com",
		},
		{
			name:     "HTTPS URL is kept",
			target:   "https://example.com",
			wantHost: "example.com",
			wantURL:  "https://example.com",
		},
		{
			name:     "Domain with port",
			target:   "example.com:8080",
			wantHost: "example.com",
			wantPort: "8080",
			wantURL:  "http://example.com:8080",
		},
		{
			name:     "URL with path",
			target:   "https://api.example.com/v1/status",
			wantHost: "api.example.com",
			wantURL:  "https://api.example.com/v1/status",
		},
		{
			name:     "Surrounding whitespace",
			target:   "  example.com \n",
			wantHost: "example.com",
			wantURL:  "http://example.com",
		},
		{
			name:     "Trailing dot",
			target:   "example.com.",
			wantHost: "example.com",
			wantURL:  "http://example.com.",
		},
		{
			name:     "Mixed case is lowered",
			target:   "Example.COM",
			wantHost: "example.com",
			wantURL:  "http://Example.COM",
		},
		{
			name:     "Internationalized domain",
			target:   "bücher.example",
			wantHost: "xn--bcher-kva.example",
			wantURL:  "http://bücher.example",
		},
		{
			name:     "IPv4 literal",
			target:   "192.0.2.1",
			wantHost: "192.0.2.1",
			wantURL:  "http://192.0.2.1",
		},
		{
			name:     "IPv6 literal with port",
			target:   "[::1]:8443",
			wantHost: "::1",
			wantPort: "8443",
			wantURL:  "http://[::1]:8443",
		},
		{
			name:   "Empty",
			target: "   ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTarget(tc.target)
			if got.Original != tc.target {
				t.Errorf("Original: expected %q, got %q", tc.target, got.Original)
			}
			if got.Host != tc.wantHost {
				t.Errorf("Host: expected %q, got %q", tc.wantHost, got.Host)
			}
			if got.Port != tc.wantPort {
				t.Errorf("Port: expected %q, got %q", tc.wantPort, got.Port)
			}
			if got.URL != tc.wantURL {
				t.Errorf("URL: expected %q, got %q", tc.wantURL, got.URL)
			}
		})
	}
}

func TestHasHTTPScheme(t *testing.T) {
	cases := map[string]bool{
		"http://a.example":  true,
		"https://a.example": true,
		"HTTPS://a.example": true,
		"a.example":         false,
		"ftp://a.example":   false,
		"httpbin.org":       false,
	}
	for input, want := range cases {
		if got := HasHTTPScheme(input); got != want {
			t.Errorf("HasHTTPScheme(%q) = %v, want %v", input, got, want)
		}
	}
}
