package validator

import (
	"testing"

	"closer_scheduling_backend/platform/apperr"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	LeadID   string `json:"leadId" validate:"required,uuid"`
	Category string `json:"category" validate:"required,color"`
}

func TestStructReturnsValidationErrorWithJSONFieldNames(t *testing.T) {
	val := New()
	if err := val.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "blue"
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := val.Struct(sample{LeadID: "not-a-uuid", Category: "red"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	appErr := err.(*apperr.Error)
	details, ok := appErr.Details.([]FieldError)
	if !ok || len(details) != 2 {
		t.Fatalf("expected two field errors, got %#v", appErr.Details)
	}
	if details[0].Field != "leadId" || details[1].Rule != "color" {
		t.Fatalf("unexpected details %#v", details)
	}
}
