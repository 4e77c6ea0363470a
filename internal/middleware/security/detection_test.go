package security

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIPDirect(t *testing.T) {
	d := NewDetector()
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:4321"

	if got := d.ExtractClientIP(req); got != "203.0.113.9" {
		t.Errorf("ExtractClientIP = %q, want 203.0.113.9", got)
	}
}

func TestExtractClientIPIgnoresSpoofedHeader(t *testing.T) {
	d := NewDetector()
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:4321" // not a trusted proxy
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := d.ExtractClientIP(req); got != "203.0.113.9" {
		t.Errorf("forwarded header honored from untrusted source: %q", got)
	}
}

func TestExtractClientIPFromTrustedProxy(t *testing.T) {
	d := NewDetector()
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:4321" // private range is trusted
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.5")

	if got := d.ExtractClientIP(req); got != "198.51.100.7" {
		t.Errorf("ExtractClientIP = %q, want 198.51.100.7", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		userAgent  string
		suspicious bool
	}{
		{"normal form post", "POST", "/transactions", "Mozilla/5.0", false},
		{"normal partial fetch", "GET", "/ui/month-summary?year=2024&month=3", "Mozilla/5.0", false},
		{"path traversal", "GET", "/static/../../etc/passwd", "Mozilla/5.0", true},
		{"dotenv probe", "GET", "/.env", "Mozilla/5.0", true},
		{"script scheme in query", "GET", "/?redirect=javascript:alert(1)", "Mozilla/5.0", true},
		{"scanner agent", "POST", "/transactions", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "Mozilla/5.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.userAgent)

			if got := d.DetectSuspiciousRequest(req); got != tt.suspicious {
				t.Errorf("DetectSuspiciousRequest = %v, want %v", got, tt.suspicious)
			}
			want := int64(0)
			if tt.suspicious {
				want = 1
			}
			if m := d.GetMetrics(); m.SuspiciousRequests != want {
				t.Errorf("SuspiciousRequests = %d, want %d", m.SuspiciousRequests, want)
			}
		})
	}
}

func TestAddTrustedProxyRejectsBadCIDR(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("192.0.2.0/24"); err != nil {
		t.Errorf("valid CIDR rejected: %v", err)
	}
}
