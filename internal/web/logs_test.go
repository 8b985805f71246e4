package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogBuffer_JoinsPartialWrites(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("haptic: at"))
	_, _ = b.Write([]byte("tached\nhaptic: on"))
	lines, _ := b.Snapshot(0)
	if len(lines) != 1 || lines[0] != "haptic: attached" {
		t.Fatalf("lines=%q", lines)
	}
	_, _ = b.Write([]byte("\r\n\n"))
	lines, _ = b.Snapshot(0)
	if len(lines) != 2 || lines[1] != "haptic: on" {
		t.Fatalf("lines=%q", lines)
	}
}

func TestLogBuffer_DropsOldest(t *testing.T) {
	b := NewLogBuffer(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		_, _ = b.Write([]byte(s + "\n"))
	}
	lines, dropped := b.Snapshot(0)
	if strings.Join(lines, ",") != "c,d,e" || dropped != 2 {
		t.Fatalf("lines=%v dropped=%d", lines, dropped)
	}
	lines, _ = b.Snapshot(2)
	if strings.Join(lines, ",") != "d,e" {
		t.Fatalf("tail=%v", lines)
	}
}

func TestLogBuffer_HandlerText(t *testing.T) {
	b := NewLogBuffer(2)
	_, _ = b.Write([]byte("one\ntwo\nthree\n"))

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?format=text", nil))
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "[dropped=1]\ntwo\nthree\n" {
		t.Fatalf("body=%q", body)
	}
}

func TestLogBuffer_HandlerRejectsBadTail(t *testing.T) {
	b := NewLogBuffer(5)
	for _, q := range []string{"tail=0", "tail=6", "tail=x"} {
		rec := httptest.NewRecorder()
		b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: code=%d want 400", q, rec.Code)
		}
	}
}
