package validator

import (
	"errors"
	"io"
	"testing"

	"clinic/pkg/logger"
	"clinic/pkg/model"
)

func newTestValidator(t *testing.T) *TemplateValidator {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Output: io.Discard})
	return NewTemplateValidator(log)
}

func validTemplate() *model.ScheduleTemplate {
	return &model.ScheduleTemplate{
		DoctorID:            "507f1f77bcf86cd799439011",
		DayOfWeek:           1,
		StartTime:           "09:00",
		EndTime:             "17:00",
		SlotDurationMinutes: 30,
		BreakStart:          "12:00",
		BreakEnd:            "13:00",
		MaxPatients:         10,
		IsActive:            true,
	}
}

func TestValidateAccepts(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name   string
		mutate func(*model.ScheduleTemplate)
	}{
		{"full template", func(*model.ScheduleTemplate) {}},
		{"no break", func(tpl *model.ScheduleTemplate) {
			tpl.BreakStart = ""
			tpl.BreakEnd = ""
		}},
		{"zero max patients", func(tpl *model.ScheduleTemplate) {
			tpl.MaxPatients = 0
		}},
		{"sunday as seven", func(tpl *model.ScheduleTemplate) {
			tpl.DayOfWeek = 7
		}},
		{"duration exactly fills window", func(tpl *model.ScheduleTemplate) {
			tpl.StartTime = "09:00"
			tpl.EndTime = "09:30"
			tpl.SlotDurationMinutes = 30
			tpl.BreakStart = ""
			tpl.BreakEnd = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(tpl)
			if err := v.Validate(tpl); err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name   string
		mutate func(*model.ScheduleTemplate)
	}{
		{"missing doctor", func(tpl *model.ScheduleTemplate) {
			tpl.DoctorID = ""
		}},
		{"day of week zero", func(tpl *model.ScheduleTemplate) {
			tpl.DayOfWeek = 0
		}},
		{"day of week eight", func(tpl *model.ScheduleTemplate) {
			tpl.DayOfWeek = 8
		}},
		{"malformed start time", func(tpl *model.ScheduleTemplate) {
			tpl.StartTime = "9am"
		}},
		{"start after end", func(tpl *model.ScheduleTemplate) {
			tpl.StartTime = "17:00"
			tpl.EndTime = "09:00"
		}},
		{"start equals end", func(tpl *model.ScheduleTemplate) {
			tpl.StartTime = "09:00"
			tpl.EndTime = "09:00"
		}},
		{"duration too short", func(tpl *model.ScheduleTemplate) {
			tpl.SlotDurationMinutes = 1
		}},
		{"duration exceeds window", func(tpl *model.ScheduleTemplate) {
			tpl.StartTime = "09:00"
			tpl.EndTime = "09:20"
			tpl.SlotDurationMinutes = 30
			tpl.BreakStart = ""
			tpl.BreakEnd = ""
		}},
		{"break start without end", func(tpl *model.ScheduleTemplate) {
			tpl.BreakEnd = ""
		}},
		{"break end without start", func(tpl *model.ScheduleTemplate) {
			tpl.BreakStart = ""
		}},
		{"inverted break", func(tpl *model.ScheduleTemplate) {
			tpl.BreakStart = "13:00"
			tpl.BreakEnd = "12:00"
		}},
		{"break outside window", func(tpl *model.ScheduleTemplate) {
			tpl.BreakStart = "08:00"
			tpl.BreakEnd = "09:30"
		}},
		{"negative max patients", func(tpl *model.ScheduleTemplate) {
			tpl.MaxPatients = -1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(tpl)
			if err := v.Validate(tpl); err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	v := newTestValidator(t)

	tpl := validTemplate()
	tpl.StartTime = "17:00"
	tpl.EndTime = "09:00"

	err := v.Validate(tpl)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) == 0 {
		t.Fatal("expected at least one field error")
	}
}
