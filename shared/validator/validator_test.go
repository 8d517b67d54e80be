package validator_test

import (
	"benzback/shared/validator"
	"strings"
	"testing"
)

// Test structs for validation
type ValidTestStruct struct {
	Name     string `validate:"required" json:"name"`
	Email    string `validate:"required,email" json:"email"`
	Age      int    `validate:"gte=0,lte=120" json:"age"`
	Category string `validate:"oneof=user admin guest" json:"category"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name        string
		data        interface{}
		expectError bool
	}{
		{
			name: "valid struct",
			data: &ValidTestStruct{
				Name:     "John Doe",
				Email:    "john@example.com",
				Age:      25,
				Category: "user",
			},
			expectError: false,
		},
		{
			name: "missing required field",
			data: &ValidTestStruct{
				Email:    "john@example.com",
				Age:      25,
				Category: "user",
			},
			expectError: true,
		},
		{
			name: "invalid email",
			data: &ValidTestStruct{
				Name:     "John Doe",
				Email:    "invalid-email",
				Age:      25,
				Category: "user",
			},
			expectError: true,
		},
		{
			name: "age out of range",
			data: &ValidTestStruct{
				Name:     "John Doe",
				Email:    "john@example.com",
				Age:      150,
				Category: "user",
			},
			expectError: true,
		},
		{
			name: "invalid category",
			data: &ValidTestStruct{
				Name:     "John Doe",
				Email:    "john@example.com",
				Age:      25,
				Category: "invalid",
			},
			expectError: true,
		},
		{
			name: "negative age",
			data: &ValidTestStruct{
				Name:     "John Doe",
				Email:    "john@example.com",
				Age:      -1,
				Category: "user",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateStruct[ValidTestStruct](tt.data.(*ValidTestStruct))

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	tests := []struct {
		name        string
		field       interface{}
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
			name:        "valid email",
			field:       "test@example.com",
			tag:         "email",
			expectError: false,
		},
		{
			name:        "invalid email",
			field:       "invalid-email",
			tag:         "email",
			expectError: true,
		},
		{
			name:        "valid number in range",
			field:       25,
			tag:         "gte=0,lte=100",
			expectError: false,
		},
		{
			name:        "number out of range",
			field:       150,
			tag:         "gte=0,lte=100",
			expectError: true,
		},
		{
			name:        "valid oneof",
			field:       "admin",
			tag:         "oneof=user admin guest",
			expectError: false,
		},
		{
			name:        "invalid oneof",
			field:       "invalid",
			tag:         "oneof=user admin guest",
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
			jsonBody:    `{"name":"John Doe","email":"john@example.com","age":25,"category":"user"}`,
			expectError: false,
		},
		{
			name:        "invalid JSON",
			jsonBody:    `{"name":"John Doe","email":"invalid-email","age":25,"category":"user"}`,
			expectError: true,
		},
		{
			name:        "malformed JSON",
			jsonBody:    `{"name":"John Doe","email":}`,
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
			reader := strings.NewReader(tt.jsonBody)
			var data ValidTestStruct
			err := validator.Validate(reader, &data)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

// Test custom validation messages
func TestValidationMessages(t *testing.T) {
	data := &ValidTestStruct{}
	err := validator.ValidateStruct[ValidTestStruct](data)

	if err == nil {
		t.Fatal("expected validation error for empty struct")
	}

	errorMsg := err.Error()

	// Check that error message contains field name and is descriptive
	if !strings.Contains(errorMsg, "required") || errorMsg == "" {
		t.Errorf("expected descriptive error message containing 'required', got: %s", errorMsg)
	}
}

// Test validation error handling
func TestValidationErrorHandling(t *testing.T) {
	// Test with multiple validation errors
	data := &ValidTestStruct{
		Name:     "",        // required violation
		Email:    "invalid", // email violation
		Age:      -1,        // gte violation
		Category: "invalid", // oneof violation
	}

	err := validator.ValidateStruct[ValidTestStruct](data)
	if err == nil {
		t.Fatal("expected validation error")
	}

	// The error should be descriptive and contain information about the failure
	errorMsg := err.Error()
	if errorMsg == "" {
		t.Error("expected non-empty error message")
	}

	t.Logf("Error message: %s", errorMsg)
}

// Test that the validator package initializes correctly
func TestValidatorInitialization(t *testing.T) {
	// Test that we can validate basic structs without panic
	// This indirectly tests that the init() function worked correctly
	data := &ValidTestStruct{
		Name:     "Test",
		Email:    "test@example.com",
		Age:      25,
		Category: "user",
	}

	err := validator.ValidateStruct[ValidTestStruct](data)
	if err != nil {
		t.Errorf("expected no validation error for valid struct, got: %v", err)
	}
}

type bookingDates struct {
	PickupDate   string `validate:"required,timestamp"`
	LicenseRef   string `validate:"required_with=InsuranceRef,docref"`
	InsuranceRef string `validate:"required_with=LicenseRef,docref"`
}

func TestDomainValidations(t *testing.T) {
	tests := []struct {
		name        string
		data        bookingDates
		expectError bool
	}{
		{
			name:        "timestamp with offset",
			data:        bookingDates{PickupDate: "2026-03-01T10:00:00+07:00"},
			expectError: false,
		},
		{
			name:        "date without time",
			data:        bookingDates{PickupDate: "2026-03-01"},
			expectError: true,
		},
		{
			name:        "documents as identifiers",
			data:        bookingDates{PickupDate: "2026-03-01T10:00:00Z", LicenseRef: "license:abc-123", InsuranceRef: "ins-77"},
			expectError: false,
		},
		{
			name:        "documents as urls",
			data:        bookingDates{PickupDate: "2026-03-01T10:00:00Z", LicenseRef: "https://files.example.com/l.pdf", InsuranceRef: "https://files.example.com/i.pdf"},
			expectError: false,
		},
		{
			name:        "url without host",
			data:        bookingDates{PickupDate: "2026-03-01T10:00:00Z", LicenseRef: "https://", InsuranceRef: "ins-77"},
			expectError: true,
		},
		{
			name:        "reference with whitespace",
			data:        bookingDates{PickupDate: "2026-03-01T10:00:00Z", LicenseRef: "my license", InsuranceRef: "ins-77"},
			expectError: true,
		},
		{
			name:        "license without insurance",
			data:        bookingDates{PickupDate: "2026-03-01T10:00:00Z", LicenseRef: "license-1"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateStruct(&tt.data)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}
