package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCaptureWriterCapsBufferButCountsFullSize(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 8}

	if _, err := cw.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := cw.Write([]byte("0123456789")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := rec.Body.String(); got != "hello0123456789" {
		t.Errorf("client saw %q, want the full body", got)
	}
	if cw.buf.Len() != 8 {
		t.Errorf("buffered %d bytes, want capture capped at 8", cw.buf.Len())
	}
	if cw.size != 15 {
		t.Errorf("size = %d, want the full 15 so overflow is detectable", cw.size)
	}
}

func TestCacheableSkipsOversizeAndNon200(t *testing.T) {
	cases := []struct {
		status      int
		size, limit int64
		want        bool
	}{
		{http.StatusOK, 5, 8, true},
		{http.StatusOK, 8, 8, true},
		{http.StatusOK, 9, 8, false}, // capped capture would replay a cut-off body
		{http.StatusOK, 9, 0, true},  // no limit configured
		{http.StatusNotFound, 5, 8, false},
		{http.StatusInternalServerError, 5, 8, false},
	}
	for _, c := range cases {
		if got := cacheable(c.status, c.size, c.limit); got != c.want {
			t.Errorf("cacheable(%d, %d, %d) = %v, want %v", c.status, c.size, c.limit, got, c.want)
		}
	}
}

func TestPayloadRoundTripAndCorruptEntries(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	body := []byte(`{"app_name":"Front Desk"}`)
	payload, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(payload)
	if !ok || status != http.StatusOK {
		t.Fatalf("decode: ok=%v status=%d", ok, status)
	}
	if gotHdr.Get("Content-Type") != "application/json" || !bytes.Equal(gotBody, body) {
		t.Errorf("decoded hdr=%v body=%q", gotHdr, gotBody)
	}

	if _, _, _, ok := decodePayload([]byte{1, 2, 3}); ok {
		t.Error("decoded a truncated entry")
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0, 200, 0, 0, 255, 255}); ok {
		t.Error("decoded an entry whose header length exceeds the payload")
	}
}
