package contracts

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ContractValidationError reports every field that failed validation for one
// contract payload, so a caller can log the full set rather than bailing
// after the first problem.
type ContractValidationError struct {
	Contract string
	Errors   []string
}

func (e *ContractValidationError) Error() string {
	return fmt.Sprintf("contract %s: %d validation error(s): %v", e.Contract, len(e.Errors), e.Errors)
}

// ValidatePayload runs struct-tag validation for any of the twelve
// request/response payload types, then layers on the hand-written
// cross-field invariants struct tags can't express.
func ValidatePayload(contract string, payload any) error {
	var errs []string

	if err := validate.Struct(payload); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if resp, ok := payload.(VerifyResolutionResponse); ok {
		if !resp.Result.Passed && resp.Result.FailureAnalysis == "" {
			errs = append(errs, "result.failure_analysis: required when passed=false")
		}
	}

	if len(errs) > 0 {
		return &ContractValidationError{Contract: contract, Errors: errs}
	}
	return nil
}
