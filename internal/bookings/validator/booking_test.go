package validator

import (
	"errors"
	"strings"
	"testing"

	"eventa/pkg/logger"
	"eventa/pkg/model"
)

func intPtr(i int) *int { return &i }

func TestValidateRequest(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name      string
		req       *model.BookingRequest
		wantErr   bool
		wantField string
	}{
		{"valid", &model.BookingRequest{EventID: "6f1c3c4e-8d7a-4b55-9a43-1f3c1b2d9e10"}, false, ""},
		{"valid with seats", &model.BookingRequest{EventID: "6f1c3c4e-8d7a-4b55-9a43-1f3c1b2d9e10", Seats: 2}, false, ""},
		{"missing event", &model.BookingRequest{}, true, "event_id"},
		{"bad uuid", &model.BookingRequest{EventID: "abc"}, true, "event_id"},
		{"negative seats", &model.BookingRequest{EventID: "6f1c3c4e-8d7a-4b55-9a43-1f3c1b2d9e10", Seats: -1}, true, "number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr {
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) || len(verrs) == 0 {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, verrs[0].Field)
			}
		})
	}
}

func TestValidateStatus(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	if err := v.ValidateStatus(&model.BookingStatusUpdate{Status: "confirmed"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := v.ValidateStatus(&model.BookingStatusUpdate{Status: "done"})
	if err == nil || !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("expected oneof error, got %v", err)
	}
}

func TestValidateDeadline(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	if err := v.ValidateDeadline(&model.DeadlineRequest{Days: intPtr(0)}); err != nil {
		t.Errorf("zero days should be valid: %v", err)
	}
	if err := v.ValidateDeadline(&model.DeadlineRequest{}); err == nil {
		t.Error("missing days should be rejected")
	}
	if err := v.ValidateDeadline(&model.DeadlineRequest{Days: intPtr(-1)}); err == nil {
		t.Error("negative days should be rejected")
	}
}
