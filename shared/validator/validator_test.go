package validator_test

import (
	"strings"
	"testing"
	"thakajabe/shared/failure"
	"thakajabe/shared/validator"
)

type stayRequest struct {
	RoomID     string `json:"room_id"     validate:"required"`
	CheckIn    string `json:"check_in"    validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out"   validate:"required,datetime=2006-01-02"`
	GuestCount int    `json:"guest_count" validate:"gte=1,lte=20"`
	Mode       string `json:"mode"        validate:"omitempty,oneof=instant request"`
}

func validStay() stayRequest {
	return stayRequest{
		RoomID:     "room-1",
		CheckIn:    "2026-03-01",
		CheckOut:   "2026-03-04",
		GuestCount: 2,
		Mode:       "instant",
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(req *stayRequest)
		expectError bool
	}{
		{
			name:        "valid struct",
			mutate:      func(_ *stayRequest) {},
			expectError: false,
		},
		{
			name:        "missing room",
			mutate:      func(req *stayRequest) { req.RoomID = "" },
			expectError: true,
		},
		{
			name:        "malformed date",
			mutate:      func(req *stayRequest) { req.CheckIn = "01/03/2026" },
			expectError: true,
		},
		{
			name:        "zero guests",
			mutate:      func(req *stayRequest) { req.GuestCount = 0 },
			expectError: true,
		},
		{
			name:        "unknown mode",
			mutate:      func(req *stayRequest) { req.Mode = "auction" },
			expectError: true,
		},
		{
			name:        "mode omitted",
			mutate:      func(req *stayRequest) { req.Mode = "" },
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validStay()
			tt.mutate(&req)

			err := validator.ValidateStruct(&req)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}

			if err != nil && !failure.Is(err, failure.KindValidation) {
				t.Errorf("expected validation kind, got %s", failure.GetKind(err))
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	tests := []struct {
		name        string
		field       any
		tag         string
		expectError bool
	}{
		{
			name:        "valid required string",
			field:       "test",
			tag:         "required",
			expectError: false,
		},
		{
			name:        "empty required string",
			field:       "",
			tag:         "required",
			expectError: true,
		},
		{
			name:        "positive amount",
			field:       int64(5000),
			tag:         "gt=0",
			expectError: false,
		},
		{
			name:        "zero amount",
			field:       int64(0),
			tag:         "gt=0",
			expectError: true,
		},
		{
			name:        "valid callback kind",
			field:       "ipn",
			tag:         "oneof=success fail cancel ipn",
			expectError: false,
		},
		{
			name:        "invalid callback kind",
			field:       "refund",
			tag:         "oneof=success fail cancel ipn",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateVar(tt.field, tt.tag)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		jsonBody    string
		expectError bool
	}{
		{
			name:        "valid JSON",
			jsonBody:    `{"room_id":"room-1","check_in":"2026-03-01","check_out":"2026-03-02","guest_count":1}`,
			expectError: false,
		},
		{
			name:        "invalid field",
			jsonBody:    `{"room_id":"room-1","check_in":"tomorrow","check_out":"2026-03-02","guest_count":1}`,
			expectError: true,
		},
		{
			name:        "malformed JSON",
			jsonBody:    `{"room_id":}`,
			expectError: true,
		},
		{
			name:        "empty JSON",
			jsonBody:    `{}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data stayRequest

			err := validator.Validate(strings.NewReader(tt.jsonBody), &data)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidationMessagesUseJSONNames(t *testing.T) {
	req := validStay()
	req.GuestCount = 0

	err := validator.ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	if err.Error() != "guest_count must be greater than or equal to 1" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestValidationMessageForDateFormat(t *testing.T) {
	req := validStay()
	req.CheckOut = "2026/03/04"

	err := validator.ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	if !strings.Contains(err.Error(), "check_out must match the format") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
