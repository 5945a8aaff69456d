package transport

import (
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

var qualificationKeys = map[string]bool{
	domain.QualIncomeBand:      true,
	domain.QualPriorExperience: true,
	domain.QualAssetOwnership:  true,
	domain.QualInvestmentBand:  true,
	domain.QualDesiredOutcome:  true,
}

// RegisterValidations adds the scheduling tags used by the request DTOs.
func RegisterValidations(val *validator.Validator) error {
	rules := map[string]playground.Func{
		"category": func(fl playground.FieldLevel) bool {
			_, err := domain.ParseCategory(fl.Field().String())
			return err == nil
		},
		"hhmm": func(fl playground.FieldLevel) bool {
			_, err := domain.ParseClockTime(fl.Field().String())
			return err == nil
		},
		"qualkey": func(fl playground.FieldLevel) bool {
			return qualificationKeys[fl.Field().String()]
		},
	}
	for tag, fn := range rules {
		if err := val.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
