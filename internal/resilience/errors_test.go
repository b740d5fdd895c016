package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/pkg/dux"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
)

func TestIsTransient_APIStatus(t *testing.T) {
	if !IsTransient(&ghl.APIError{StatusCode: 503}) {
		t.Error("expected CRM 503 to be transient")
	}
	if IsTransient(&ghl.APIError{StatusCode: 422}) {
		t.Error("expected CRM 422 to be permanent")
	}
	wrapped := fmt.Errorf("list invoices: %w", &dux.APIError{StatusCode: 429})
	if !IsTransient(wrapped) {
		t.Error("expected wrapped ERP 429 to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	err := errors.New("invalid input: missing field")
	if IsTransient(err) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
	}
	for _, p := range patterns {
		if !IsTransient(errors.New(p)) {
			t.Errorf("expected %q to be transient", p)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 401, StatusCode(fmt.Errorf("x: %w", &dux.APIError{StatusCode: 401})))
	assert.Equal(t, 500, StatusCode(&ghl.APIError{StatusCode: 500}))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"cancel", fmt.Errorf("wait: %w", context.Canceled), ClassCancel},
		{"schema", &model.SchemaMismatchError{Need: 27, Got: 3}, ClassSchema},
		{"api", &ghl.APIError{StatusCode: 400}, ClassAPI},
		{"io", &os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, ClassIO},
		{"network", errors.New("connection reset by peer"), ClassNetwork},
		{"data", &DataError{Err: errors.New("bad date")}, ClassData},
		{"unknown", errors.New("boom"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestNewFailure(t *testing.T) {
	e := NewFailure("run-1", PhaseUpsert, "4512", &ghl.APIError{Op: "upsert contact", StatusCode: 503, Body: "down"})

	require.NotEmpty(t, e.ID)
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, PhaseUpsert, e.Phase)
	assert.Equal(t, "4512", e.RecordKey)
	assert.Equal(t, ErrorTransient, e.ErrorType)
	assert.Equal(t, ClassAPI, e.Class)
	assert.Contains(t, e.Error, "status 503")
	assert.False(t, e.CreatedAt.IsZero())

	next := NewFailure("run-1", PhaseUpsert, "4513", errors.New("x"))
	assert.Less(t, e.ID, next.ID)
	assert.Equal(t, ErrorPermanent, next.ErrorType)
}
