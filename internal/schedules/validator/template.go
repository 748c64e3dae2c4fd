package validator

import (
	"errors"
	"fmt"
	"strings"

	"clinic/pkg/logger"
	"clinic/pkg/model"
	"clinic/pkg/timeutil"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type TemplateValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTemplateValidator(log *logger.Logger) *TemplateValidator {
	v := validator.New()

	if err := v.RegisterValidation("clock_time", validateClockTime); err != nil {
		log.Fatal("Failed to register 'clock_time' validator", "error", err)
	}

	log.Info("Schedule template validator initialized successfully")

	return &TemplateValidator{
		validate: v,
		logger:   log,
	}
}

func validateClockTime(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true // omitempty handles presence
	}
	_, err := timeutil.ParseClock(s)
	return err == nil
}

func (v *TemplateValidator) Validate(t *model.ScheduleTemplate) error {
	if err := v.validate.Struct(t); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return v.validateWindow(t)
}

// validateWindow enforces the cross-field rules the struct tags cannot
// express: the working window must be a real interval the slot duration fits
// into, and a break is either absent or wholly inside the window.
func (v *TemplateValidator) validateWindow(t *model.ScheduleTemplate) error {
	var errs ValidationErrors

	start, err := timeutil.ParseClock(t.StartTime)
	if err != nil {
		// Struct tags already rejected malformed clock strings; nothing
		// further to check.
		return nil
	}
	end, err := timeutil.ParseClock(t.EndTime)
	if err != nil {
		return nil
	}

	if start >= end {
		errs = append(errs, ValidationError{
			Field:   "EndTime",
			Message: "end_time must be after start_time",
		})
	} else if end-start < t.SlotDurationMinutes {
		errs = append(errs, ValidationError{
			Field:   "SlotDurationMinutes",
			Message: "slot_duration_minutes does not fit inside the working window",
		})
	}

	hasBreakStart := t.BreakStart != ""
	hasBreakEnd := t.BreakEnd != ""
	if hasBreakStart != hasBreakEnd {
		errs = append(errs, ValidationError{
			Field:   "BreakStart",
			Message: "break_start and break_end must be set together",
		})
	} else if hasBreakStart {
		bs, errBS := timeutil.ParseClock(t.BreakStart)
		be, errBE := timeutil.ParseClock(t.BreakEnd)
		if errBS == nil && errBE == nil {
			if bs >= be {
				errs = append(errs, ValidationError{
					Field:   "BreakEnd",
					Message: "break_end must be after break_start",
				})
			} else if bs < start || be > end {
				errs = append(errs, ValidationError{
					Field:   "BreakStart",
					Message: "break must lie wholly inside the working window",
				})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *TemplateValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "clock_time":
			message = fmt.Sprintf("%s must be a 24-hour HH:MM clock time", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid object ID", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
