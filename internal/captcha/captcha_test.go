package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vendorServer fakes a siteverify endpoint and records the last form posted.
type vendorServer struct {
	*httptest.Server
	calls    int32
	lastForm atomic.Value
}

func newVendorServer(t *testing.T, handler func(w http.ResponseWriter, form url.Values)) *vendorServer {
	t.Helper()
	vs := &vendorServer{}
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&vs.calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		vs.lastForm.Store(r.PostForm)
		handler(w, r.PostForm)
	}))
	t.Cleanup(vs.Close)
	return vs
}

func (vs *vendorServer) Calls() int { return int(atomic.LoadInt32(&vs.calls)) }

func (vs *vendorServer) Form() url.Values {
	if v, ok := vs.lastForm.Load().(url.Values); ok {
		return v
	}
	return nil
}

func respond(body string) func(http.ResponseWriter, url.Values) {
	return func(w http.ResponseWriter, _ url.Values) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"", true},
		{"   ", true},
		{"COLE_AQUI_O_SECRET", true},
		{"cole_aqui", true},
		{"PASTE_YOUR_SECRET", true},
		{"your-secret-here", true},
		{"CHANGE_ME", true},
		{"<turnstile-secret>", true},
		{"0x4AAAAAAABkMYinukE8nzYS", false},
		{"6LeIxAcTAAAAAGG-vFI1TnRWxMZNFuojJ4WifJWe", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPlaceholder(tt.value))
		})
	}
}

func TestConfig_ActivePriority(t *testing.T) {
	cfg := Config{
		Enabled: true,
		Secrets: []Secret{
			{Vendor: VendorTurnstile, Value: "turnstile-secret"},
			{Vendor: VendorReCAPTCHA, Value: "recaptcha-secret"},
		},
	}

	for i := 0; i < 3; i++ {
		active, ok := cfg.Active()
		require.True(t, ok)
		assert.Equal(t, VendorTurnstile, active.Vendor)
		assert.Equal(t, DefaultEndpoints[VendorTurnstile], active.Endpoint)
	}
}

func TestConfig_ActiveSkipsPlaceholder(t *testing.T) {
	cfg := Config{
		Enabled: true,
		Secrets: []Secret{
			{Vendor: VendorTurnstile, Value: "COLE_AQUI_O_SECRET"},
			{Vendor: VendorReCAPTCHA, Value: " recaptcha-secret "},
		},
	}

	active, ok := cfg.Active()
	require.True(t, ok)
	assert.Equal(t, VendorReCAPTCHA, active.Vendor)
	assert.Equal(t, "recaptcha-secret", active.Value)
}

func TestConfig_ActiveNone(t *testing.T) {
	cfg := Config{
		Enabled: true,
		Secrets: []Secret{
			{Vendor: VendorTurnstile, Value: ""},
			{Vendor: VendorReCAPTCHA, Value: "COLE_AQUI_O_SECRET"},
		},
	}

	_, ok := cfg.Active()
	assert.False(t, ok)
}

func TestGate_DisabledAllowsAnything(t *testing.T) {
	vs := newVendorServer(t, respond(`{"success": false}`))
	gate := NewGate(Config{
		Enabled: false,
		Secrets: []Secret{{Vendor: VendorTurnstile, Value: "real-secret", Endpoint: vs.URL}},
	})

	assert.True(t, gate.Verify(context.Background(), "", "1.2.3.4"))
	assert.True(t, gate.Verify(context.Background(), "some-token", ""))
	assert.Equal(t, 0, vs.Calls(), "disabled gate must not call the vendor")

	_, ok := gate.Vendor()
	assert.False(t, ok)
}

func TestGate_UnconfiguredAllowsAnything(t *testing.T) {
	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{{Vendor: VendorTurnstile, Value: "COLE_AQUI_O_SECRET"}},
	})

	assert.True(t, gate.Verify(context.Background(), "", ""))
	assert.True(t, gate.Verify(context.Background(), "anything", "1.2.3.4"))
}

func TestGate_MissingTokenFailsClosed(t *testing.T) {
	vs := newVendorServer(t, respond(`{"success": true}`))
	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{{Vendor: VendorTurnstile, Value: "real-secret", Endpoint: vs.URL}},
	})

	assert.False(t, gate.Verify(context.Background(), "", "1.2.3.4"))
	assert.False(t, gate.Verify(context.Background(), "   ", "1.2.3.4"))
	assert.Equal(t, 0, vs.Calls())
}

func TestGate_Success(t *testing.T) {
	vs := newVendorServer(t, respond(`{"success": true, "hostname": "example.com"}`))
	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{{Vendor: VendorTurnstile, Value: "real-secret", Endpoint: vs.URL}},
	})

	assert.True(t, gate.Verify(context.Background(), "good-token", "1.2.3.4"))
	assert.Equal(t, 1, vs.Calls())

	form := vs.Form()
	assert.Equal(t, "real-secret", form.Get("secret"))
	assert.Equal(t, "good-token", form.Get("response"))
	assert.Equal(t, "1.2.3.4", form.Get("remoteip"))
}

func TestGate_OmitsUnknownRemoteIP(t *testing.T) {
	vs := newVendorServer(t, respond(`{"success": true}`))
	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{{Vendor: VendorReCAPTCHA, Value: "real-secret", Endpoint: vs.URL}},
	})

	assert.True(t, gate.Verify(context.Background(), "good-token", ""))
	_, present := vs.Form()["remoteip"]
	assert.False(t, present)
}

func TestGate_FailureResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler func(http.ResponseWriter, url.Values)
	}{
		{"success false", respond(`{"success": false, "error-codes": ["invalid-input-response"]}`)},
		{"success missing", respond(`{"hostname": "example.com"}`)},
		{"success not a bool", respond(`{"success": "true"}`)},
		{"malformed body", respond(`not json`)},
		{"server error", func(w http.ResponseWriter, _ url.Values) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success": true}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := newVendorServer(t, tt.handler)
			gate := NewGate(Config{
				Enabled: true,
				Secrets: []Secret{{Vendor: VendorTurnstile, Value: "real-secret", Endpoint: vs.URL}},
			})

			assert.False(t, gate.Verify(context.Background(), "token", "1.2.3.4"))
			assert.Equal(t, 1, vs.Calls())
		})
	}
}

func TestGate_TimeoutFailsClosed(t *testing.T) {
	release := make(chan struct{})
	vs := newVendorServer(t, func(w http.ResponseWriter, _ url.Values) {
		<-release
		w.Write([]byte(`{"success": true}`))
	})
	defer close(release)

	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{{Vendor: VendorTurnstile, Value: "real-secret", Endpoint: vs.URL}},
		Timeout: 50 * time.Millisecond,
	})

	start := time.Now()
	assert.False(t, gate.Verify(context.Background(), "token", ""))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGate_CancelledContextFailsClosed(t *testing.T) {
	vs := newVendorServer(t, respond(`{"success": true}`))
	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{{Vendor: VendorTurnstile, Value: "real-secret", Endpoint: vs.URL}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, gate.Verify(ctx, "token", ""))
}

func TestGate_ConsultsOnlyActiveVendor(t *testing.T) {
	primary := newVendorServer(t, respond(`{"success": true}`))
	secondary := newVendorServer(t, respond(`{"success": true}`))

	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{
			{Vendor: VendorTurnstile, Value: "first", Endpoint: primary.URL},
			{Vendor: VendorReCAPTCHA, Value: "second", Endpoint: secondary.URL},
		},
	})

	for i := 0; i < 3; i++ {
		assert.True(t, gate.Verify(context.Background(), "token", ""))
	}
	assert.Equal(t, 3, primary.Calls())
	assert.Equal(t, 0, secondary.Calls())

	vendor, ok := gate.Vendor()
	require.True(t, ok)
	assert.Equal(t, VendorTurnstile, vendor)
}

func TestGate_UnreachableVendorFailsClosed(t *testing.T) {
	vs := newVendorServer(t, respond(`{"success": true}`))
	endpoint := vs.URL
	vs.Close()

	gate := NewGate(Config{
		Enabled: true,
		Secrets: []Secret{{Vendor: VendorTurnstile, Value: "real-secret", Endpoint: endpoint}},
	}, WithHTTPClient(&http.Client{Timeout: time.Second}))

	assert.False(t, gate.Verify(context.Background(), "token", ""))
}
