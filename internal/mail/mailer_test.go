package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewSMTPMailer_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     SMTPSettings
		wantErr bool
	}{
		{"disabled", SMTPSettings{}, false},
		{"missing_port", SMTPSettings{Host: "smtp.example.com", From: "a@b.com"}, true},
		{"missing_from", SMTPSettings{Host: "smtp.example.com", Port: 587}, true},
		{"invalid_from", SMTPSettings{Host: "smtp.example.com", Port: 587, From: "not-an-address"}, true},
		{"valid", SMTPSettings{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMTPMailer(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSMTPMailer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSMTPMailer_DisabledReturnsErrDisabled(t *testing.T) {
	t.Parallel()

	m, err := NewSMTPMailer(SMTPSettings{})
	if err != nil {
		t.Fatalf("NewSMTPMailer failed: %v", err)
	}

	err = m.Send(context.Background(), Message{To: "user@example.com", Subject: "hi"})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestFormatMessage(t *testing.T) {
	t.Parallel()

	out := FormatMessage("noreply@example.com", "user@example.com", "Verify your Account", "click the link")

	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: Verify your Account\r\n",
		"\r\n\r\nclick the link",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("message missing %q:\n%s", want, out)
		}
	}

	if !strings.HasSuffix(out, "\r\n") {
		t.Error("message should end with CRLF")
	}
}
