// Package templates saves facility templates: the definition of which mats a
// facility offers and which of them are handicap accessible or have a socket.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/matlist"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
	"github.com/craigmcc/cityteam-guests-client/pkg/utils/transform"
)

var ErrCommandFormat = errors.New("usage: /template name; allMats; handicapMats; socketMats[; comments]")

type Store interface {
	ActiveTemplates(ctx context.Context, facilityID int64) ([]model.Template, error)
	InsertTemplate(ctx context.Context, t model.Template) (model.Template, error)
	UpdateTemplate(ctx context.Context, t model.Template) (model.Template, error)
}

type Validator interface {
	Template(ctx context.Context, t model.Template) error
}

// Invalidator drops cached template lists after a save.
type Invalidator interface {
	InvalidateTemplates(ctx context.Context, facilityID int64) error
}

type Service struct {
	store       Store
	validator   Validator
	invalidator Invalidator
	logger      zerolog.Logger
}

func NewService(store Store, validator Validator, invalidator Invalidator, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		validator:   validator,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "templates").Logger(),
	}
}

// Saved is the result of Save: the stored template and its per-mat preview.
type Saved struct {
	Template model.Template
	Created  bool
	Mats     []matlist.Mat
}

// Save validates t and inserts it, or updates the active template of the
// same facility with the same name.
func (s *Service) Save(ctx context.Context, t model.Template) (Saved, error) {
	const op = "templates.Save"

	existing, err := s.store.ActiveTemplates(ctx, t.FacilityID)
	if err != nil {
		return Saved{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, t.Name) {
			t.ID = e.ID
			t.Name = e.Name
		}
	}
	t.Active = true

	if err := s.validator.Template(ctx, t); err != nil {
		return Saved{}, err
	}
	mats, err := matlist.Expand(t.AllMats, t.HandicapMats, t.SocketMats)
	if err != nil {
		return Saved{}, err
	}

	var saved model.Template
	if t.ID == 0 {
		saved, err = s.store.InsertTemplate(ctx, t)
	} else {
		saved, err = s.store.UpdateTemplate(ctx, t)
	}
	if err != nil {
		return Saved{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTemplates(ctx, t.FacilityID); err != nil {
			s.logger.Warn().Err(err).Int64("facilityId", t.FacilityID).Msg("template cache not invalidated")
		}
	}
	s.logger.Info().Object("template", saved).Bool("created", t.ID == 0).Msg("template saved")
	return Saved{Template: saved, Created: t.ID == 0, Mats: mats}, nil
}

// ParseCommand reads "name; allMats; handicapMats; socketMats[; comments]".
// Empty mat fields are allowed except allMats, which validation rejects.
func ParseCommand(facilityID int64, args string) (model.Template, error) {
	parts := strings.Split(args, ";")
	if len(parts) < 4 || len(parts) > 5 {
		return model.Template{}, ErrCommandFormat
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	t := model.Template{
		FacilityID:   facilityID,
		Name:         parts[0],
		AllMats:      parts[1],
		HandicapMats: parts[2],
		SocketMats:   parts[3],
	}
	if len(parts) == 5 {
		t.Comments = transform.NilIfEmpty(parts[4])
	}
	return t, nil
}

// Preview renders the mats of a template, e.g. "1H,2HS,3" with counts.
func Preview(mats []matlist.Mat) string {
	var handicap, socket int
	labels := make([]string, len(mats))
	for i, m := range mats {
		labels[i] = m.String()
		if strings.Contains(m.Feature, matlist.FeatureHandicap) {
			handicap++
		}
		if strings.Contains(m.Feature, matlist.FeatureSocket) {
			socket++
		}
	}
	return fmt.Sprintf("%d mats (%d handicap, %d socket): %s",
		len(mats), handicap, socket, strings.Join(labels, ","))
}
