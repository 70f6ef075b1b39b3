package comms

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		kind        Kind
		saveRelated bool
		serverErr   bool
		fatal       bool
	}{
		{KindEditConflict, true, false, false},
		{KindSpamBlacklist, true, false, false},
		{KindPageLocked, true, false, false},
		{KindPageSave, true, false, false},
		{KindServerError, false, true, false},
		{KindServerTimeout, false, true, false},
		{KindFatalServer, false, false, true},
		{KindRequestTooLong, false, false, false},
		{KindUnknown, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := &APIError{Kind: tt.kind}
			if got := IsSaveRelated(err); got != tt.saveRelated {
				t.Errorf("IsSaveRelated() = %v, want %v", got, tt.saveRelated)
			}
			if got := IsServerError(err); got != tt.serverErr {
				t.Errorf("IsServerError() = %v, want %v", got, tt.serverErr)
			}
			if got := IsFatal(err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	inner := &APIError{Kind: KindEditConflict, Code: "editconflict"}
	wrapped := fmt.Errorf("failed to save [[en:Alpha]]: %w", inner)

	if !IsSaveRelated(wrapped) {
		t.Error("IsSaveRelated() did not unwrap")
	}
	if IsSaveRelated(errors.New("plain error")) {
		t.Error("IsSaveRelated() matched a plain error")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{
		Kind:  KindSpamBlacklist,
		Code:  "spamblacklist",
		Info:  "URL is blocked",
		Cause: errors.New("underlying"),
	}

	msg := err.Error()
	for _, want := range []string{"spam blacklist", "spamblacklist", "URL is blocked", "underlying"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	if !errors.Is(err, err.Cause) {
		t.Error("Unwrap() does not expose the cause")
	}
}
