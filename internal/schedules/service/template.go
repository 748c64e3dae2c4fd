package service

import (
	"context"
	"errors"

	scheduleserrors "clinic/internal/schedules/errors"
	"clinic/internal/schedules/repository"
	"clinic/internal/schedules/validator"
	"clinic/pkg/auth"
	"clinic/pkg/config"
	apperrors "clinic/pkg/errors"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// BulkGenerateRequest describes a batch of weekly templates to create in one
// call: the same working window applied to several weekdays.
type BulkGenerateRequest struct {
	DoctorID            string `json:"doctor_id" validate:"required"`
	Days                []int  `json:"days" validate:"required"`
	StartTime           string `json:"start_time" validate:"required"`
	EndTime             string `json:"end_time" validate:"required"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
}

type TemplateService interface {
	Create(ctx context.Context, t *model.ScheduleTemplate) error
	GetByID(ctx context.Context, id string) (*model.ScheduleTemplate, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*model.ScheduleTemplate, error)
	Update(ctx context.Context, id string, updates *model.ScheduleTemplateUpdate) error
	Toggle(ctx context.Context, id string) (*model.ScheduleTemplate, error)
	Delete(ctx context.Context, id string) error
	BulkGenerate(ctx context.Context, req *BulkGenerateRequest) ([]*model.ScheduleTemplate, error)
}

type templateService struct {
	repo      repository.TemplateRepository
	validator *validator.TemplateValidator
	cfg       *config.Config
}

func NewTemplateService(
	repo repository.TemplateRepository,
	validator *validator.TemplateValidator,
	cfg *config.Config,
) TemplateService {
	return &templateService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

// canManage enforces ownership: doctors manage only their own weekly
// templates, admins manage anyone's.
func (s *templateService) canManage(ctx context.Context, doctorID string) error {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return apperrors.Unauthorized("Authentication required")
	}
	if user.Role == auth.RoleAdmin {
		return nil
	}
	if user.Role == auth.RoleDoctor && user.ID == doctorID {
		return nil
	}
	return apperrors.Forbidden("Schedule templates can only be managed by their doctor")
}

func (s *templateService) Create(ctx context.Context, t *model.ScheduleTemplate) error {
	s.applyDefaults(t)

	if err := s.canManage(ctx, t.DoctorID); err != nil {
		return err
	}

	if err := s.validator.Validate(t); err != nil {
		s.cfg.Log.Warn("Schedule template validation failed",
			"doctor_id", t.DoctorID,
			"day_of_week", t.DayOfWeek,
			"error", err,
		)
		return apperrors.Validation("Schedule template validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.ActiveByDoctorDay(sessCtx, t.DoctorID, t.DayOfWeek)
		if err != nil {
			return apperrors.Internal("Failed to check for existing templates", err)
		}
		for _, e := range existing {
			if e.StartTime == t.StartTime {
				return apperrors.Conflict("An active template with the same start time already exists for this weekday")
			}
		}
		return s.repo.Create(sessCtx, t)
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create schedule template",
			"doctor_id", t.DoctorID,
			"day_of_week", t.DayOfWeek,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Schedule template created successfully",
		"id", t.ID,
		"doctor_id", t.DoctorID,
		"day_of_week", t.DayOfWeek,
		"start_time", t.StartTime,
	)
	return nil
}

func (s *templateService) GetByID(ctx context.Context, id string) (*model.ScheduleTemplate, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Template ID cannot be empty")
	}

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, scheduleserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Schedule template", id)
		}
		if errors.Is(err, scheduleserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid template ID format")
		}
		s.cfg.Log.Error("Failed to get schedule template by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve schedule template", err)
	}

	return t, nil
}

func (s *templateService) ListByDoctor(ctx context.Context, doctorID string) ([]*model.ScheduleTemplate, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	templates, err := s.repo.FindByDoctor(ctx, doctorID)
	if err != nil {
		s.cfg.Log.Error("Failed to list schedule templates",
			"doctor_id", doctorID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve schedule templates", err)
	}
	return templates, nil
}

func (s *templateService) Update(ctx context.Context, id string, updates *model.ScheduleTemplateUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Template ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.canManage(ctx, existing.DoctorID); err != nil {
		return err
	}

	merged := s.mergeTemplateUpdates(existing, updates)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Schedule template validation failed",
			"id", id,
			"doctor_id", merged.DoctorID,
			"error", err,
		)
		return apperrors.Validation("Schedule template validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		siblings, err := s.repo.ActiveByDoctorDay(sessCtx, merged.DoctorID, merged.DayOfWeek)
		if err != nil {
			return apperrors.Internal("Failed to check for duplicate templates", err)
		}
		for _, e := range siblings {
			if e.ID == merged.ID {
				continue
			}
			if e.StartTime == merged.StartTime {
				return apperrors.Conflict("Another active template with the same start time already exists for this weekday")
			}
		}
		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			s.cfg.Log.Error("Failed to update schedule template",
				"id", id,
				"error", err,
			)
			return apperrors.Internal("Failed to update schedule template", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Schedule template updated successfully", "id", id, "doctor_id", merged.DoctorID)
	return nil
}

func (s *templateService) Toggle(ctx context.Context, id string) (*model.ScheduleTemplate, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.canManage(ctx, existing.DoctorID); err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, id, !existing.IsActive); err != nil {
		if errors.Is(err, scheduleserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Schedule template", id)
		}
		s.cfg.Log.Error("Failed to toggle schedule template",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to toggle schedule template", err)
	}

	existing.IsActive = !existing.IsActive
	s.cfg.Log.Info("Schedule template toggled",
		"id", id,
		"doctor_id", existing.DoctorID,
		"is_active", existing.IsActive,
	)
	return existing, nil
}

func (s *templateService) Delete(ctx context.Context, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.canManage(ctx, existing.DoctorID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, scheduleserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Schedule template", id)
		}
		s.cfg.Log.Error("Failed to delete schedule template",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete schedule template", err)
	}

	s.cfg.Log.Info("Schedule template deleted successfully", "id", id)
	return nil
}

func (s *templateService) BulkGenerate(ctx context.Context, req *BulkGenerateRequest) ([]*model.ScheduleTemplate, error) {
	if req == nil || req.DoctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	if len(req.Days) == 0 {
		return nil, apperrors.InvalidInput("At least one weekday is required")
	}

	if err := s.canManage(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	duration := req.SlotDurationMinutes
	if duration == 0 {
		duration = s.cfg.DefaultSlotDurationMin
	}

	// Validate one representative template up front so a malformed window
	// fails before any weekday is written.
	probe := &model.ScheduleTemplate{
		DoctorID:            req.DoctorID,
		DayOfWeek:           req.Days[0],
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: duration,
		MaxPatients:         s.cfg.DefaultMaxPatients,
		IsActive:            true,
	}
	if err := s.validator.Validate(probe); err != nil {
		return nil, apperrors.Validation("Schedule template validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	for _, day := range req.Days {
		if day < 1 || day > 7 {
			return nil, apperrors.InvalidInput("Weekdays must be 1 (Monday) through 7 (Sunday)")
		}
	}

	var created []*model.ScheduleTemplate
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		created = created[:0]
		for _, day := range req.Days {
			existing, err := s.repo.ActiveByDoctorDay(sessCtx, req.DoctorID, day)
			if err != nil {
				return apperrors.Internal("Failed to check for existing templates", err)
			}
			if len(existing) > 0 {
				// Days already covered by an active template are skipped,
				// not overwritten.
				continue
			}

			t := &model.ScheduleTemplate{
				DoctorID:            req.DoctorID,
				DayOfWeek:           day,
				StartTime:           req.StartTime,
				EndTime:             req.EndTime,
				SlotDurationMinutes: duration,
				MaxPatients:         s.cfg.DefaultMaxPatients,
				IsActive:            true,
			}
			if err := s.repo.Create(sessCtx, t); err != nil {
				return err
			}
			created = append(created, t)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to bulk generate schedule templates",
			"doctor_id", req.DoctorID,
			"days", req.Days,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Schedule templates bulk generated",
		"doctor_id", req.DoctorID,
		"requested_days", len(req.Days),
		"created", len(created),
	)
	return created, nil
}

func (s *templateService) applyDefaults(t *model.ScheduleTemplate) {
	if t.SlotDurationMinutes == 0 {
		t.SlotDurationMinutes = s.cfg.DefaultSlotDurationMin
	}
	// MaxPatients stays as provided: zero is a meaningful value (capacity
	// bounded only by the slot grid).
}

func (s *templateService) mergeTemplateUpdates(existing *model.ScheduleTemplate, updates *model.ScheduleTemplateUpdate) *model.ScheduleTemplate {
	merged := *existing

	if updates.DayOfWeek != nil {
		merged.DayOfWeek = *updates.DayOfWeek
	}
	if updates.StartTime != "" {
		merged.StartTime = updates.StartTime
	}
	if updates.EndTime != "" {
		merged.EndTime = updates.EndTime
	}
	if updates.SlotDurationMinutes != nil {
		merged.SlotDurationMinutes = *updates.SlotDurationMinutes
	}
	if updates.BreakStart != nil {
		merged.BreakStart = *updates.BreakStart
	}
	if updates.BreakEnd != nil {
		merged.BreakEnd = *updates.BreakEnd
	}
	if updates.MaxPatients != nil {
		merged.MaxPatients = *updates.MaxPatients
	}

	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	return &merged
}
