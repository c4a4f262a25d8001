package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/odletter"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/repository"
)

// ProfileService serves a signed-in participant's own data.
type ProfileService struct {
	profiles   ProfileStore
	regs       RegistrationStore
	letterhead odletter.Letterhead
	now        func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles ProfileStore, regs RegistrationStore) *ProfileService {
	return &ProfileService{
		profiles:   profiles,
		regs:       regs,
		letterhead: odletter.DefaultLetterhead(),
		now:        time.Now,
	}
}

// SignIn mirrors the identity into the participant's profile.
func (s *ProfileService) SignIn(ctx context.Context, id model.Identity) (*model.UserProfile, error) {
	if err := s.profiles.Upsert(ctx, id, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.Profile(ctx, id)
}

// Profile returns the stored profile, or one built from the identity when
// the participant has never been mirrored.
func (s *ProfileService) Profile(ctx context.Context, id model.Identity) (*model.UserProfile, error) {
	p, err := s.profiles.Get(ctx, id.UID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.UserProfile{Identity: id, RegisteredEvents: []model.RegistrationSummary{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Registrations lists the participant's registrations, newest first. They
// are matched by email, so manual entries made on their behalf appear too.
func (s *ProfileService) Registrations(ctx context.Context, id model.Identity) ([]model.Registration, error) {
	if id.Email == "" {
		return []model.Registration{}, nil
	}
	return s.regs.ListByEmail(ctx, id.Email)
}

// ODLetter renders the On-Duty letter for one of the participant's own
// registrations.
func (s *ProfileService) ODLetter(ctx context.Context, id model.Identity, regID string) ([]byte, string, error) {
	reg, err := s.regs.Get(ctx, regID)
	if err != nil {
		return nil, "", err
	}
	if id.Email == "" || !strings.EqualFold(reg.Email, id.Email) {
		return nil, "", ErrForbidden
	}
	if !reg.ODGenerated {
		return nil, "", ErrODNotEnabled
	}
	pdf, err := odletter.Render(*reg, s.letterhead, s.now())
	if err != nil {
		return nil, "", fmt.Errorf("render od letter: %w", err)
	}
	return pdf, odletter.Filename(*reg), nil
}
