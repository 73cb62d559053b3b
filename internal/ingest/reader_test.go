package ingest

import (
	"strings"
	"testing"
	"time"
)

func TestReadMessages(t *testing.T) {
	input := `
# exported 2025-01-12
{"id":"sms-1","text":"Rs.450 debited for SWIGGY*1","sender":"VM-HDFCBK-S","timestamp":"2025-01-12T10:30:00Z"}

{"id":"sms-2","text":"Rs.100 at CAFE","sender":"AX-ICICIB","timestamp":"2025-01-12T11:00:00Z"}
`
	msgs, err := ReadMessages(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "sms-1" || msgs[0].Sender != "VM-HDFCBK-S" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	want := time.Date(2025, 1, 12, 10, 30, 0, 0, time.UTC)
	if !msgs[0].Timestamp.Equal(want) {
		t.Errorf("timestamp: expected %v, got %v", want, msgs[0].Timestamp)
	}
}

func TestReadMessagesMalformedLine(t *testing.T) {
	input := `{"id":"sms-1","text":"ok","sender":"X","timestamp":"2025-01-12T10:30:00Z"}
{broken`
	_, err := ReadMessages(strings.NewReader(input))
	if err == nil {
		t.Fatal("malformed line must fail the whole read")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error must name the line: %v", err)
	}
}

func TestReadMessagesEmpty(t *testing.T) {
	msgs, err := ReadMessages(strings.NewReader("\n# nothing here\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}
