package service

import (
	"context"

	"clinic/internal/waitlist/repository"
	"clinic/pkg/auth"
	apperrors "clinic/pkg/errors"
	"clinic/pkg/logger"
	"clinic/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type WaitlistService interface {
	Join(ctx context.Context, doctorID string) (*model.WaitlistRequest, error)
	ListMine(ctx context.Context) ([]*model.WaitlistRequest, error)
	PendingForDoctor(ctx context.Context, doctorID string) ([]*model.WaitlistRequest, error)
}

type waitlistService struct {
	repository repository.WaitlistRepository
	log        *logger.Logger
}

func NewWaitlistService(repository repository.WaitlistRepository, log *logger.Logger) WaitlistService {
	return &waitlistService{
		repository: repository,
		log:        log,
	}
}

// Join adds the calling patient to a doctor's waitlist. Joining twice is a
// no-op: an existing un-notified entry for the pair satisfies the request.
// Once an entry has been notified it no longer blocks a fresh join.
func (s *waitlistService) Join(ctx context.Context, doctorID string) (*model.WaitlistRequest, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if user.Role != auth.RolePatient {
		return nil, apperrors.Forbidden("Only patients can join a waitlist")
	}

	if _, err := primitive.ObjectIDFromHex(doctorID); err != nil {
		return nil, apperrors.InvalidInput("Invalid doctor ID")
	}

	entry := &model.WaitlistRequest{
		PatientID: user.ID,
		DoctorID:  doctorID,
	}

	err := s.repository.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		exists, err := s.repository.ExistsPending(sessCtx, user.ID, doctorID)
		if err != nil {
			return apperrors.Internal("Failed to check waitlist", err)
		}
		if exists {
			entry = nil
			return nil
		}
		if err := s.repository.Create(sessCtx, entry); err != nil {
			return apperrors.Internal("Failed to join waitlist", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry == nil {
		s.log.Debug("waitlist join is a no-op, pending entry exists",
			"patient_id", user.ID,
			"doctor_id", doctorID)
		return nil, nil
	}

	s.log.Info("patient joined waitlist",
		"patient_id", user.ID,
		"doctor_id", doctorID,
		"waitlist_id", entry.ID)
	return entry, nil
}

func (s *waitlistService) ListMine(ctx context.Context) ([]*model.WaitlistRequest, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	entries, err := s.repository.ListByPatient(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list waitlist entries", err)
	}
	return entries, nil
}

// PendingForDoctor backs the cancel flow and the doctor-side listing.
// Doctors see their own queue, admins any.
func (s *waitlistService) PendingForDoctor(ctx context.Context, doctorID string) ([]*model.WaitlistRequest, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if user.Role == auth.RoleDoctor && user.ID != doctorID {
		return nil, apperrors.Forbidden("Doctors can only view their own waitlist")
	}
	if user.Role == auth.RolePatient {
		return nil, apperrors.Forbidden("Patients cannot view doctor waitlists")
	}

	entries, err := s.repository.PendingForDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list pending waitlist entries", err)
	}
	return entries, nil
}
