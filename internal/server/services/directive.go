package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/willtrail/willtrail/internal/common"
	"github.com/willtrail/willtrail/internal/dbx"
	"github.com/willtrail/willtrail/internal/server/card"
	"github.com/willtrail/willtrail/internal/server/config"
	"github.com/willtrail/willtrail/internal/server/models"
	"github.com/willtrail/willtrail/internal/server/repositories/repomanager"
)

const cardTokenBytes = 24

// CardToken is the result of issuing an emergency-card token.
type CardToken struct {
	Token   string    `json:"token"`
	CardURL string    `json:"cardUrl"`
	Expiry  time.Time `json:"expiry"`
}

// DirectiveService owns the directive lifecycle: lazy creation, merging
// partial updates, recomputing completion, the profile score dual write, and
// the emergency-card token lifecycle.
type DirectiveService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	cardTokenValidity time.Duration
	frontendURL       string

	// now is swappable so expiry boundaries are testable.
	now func() time.Time
}

func NewDirectiveService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *DirectiveService {
	return &DirectiveService{
		db:                db,
		repomanager:       m,
		cardTokenValidity: cfg.CardTokenValidityDuration,
		frontendURL:       cfg.FrontendURL,
		now:               time.Now,
	}
}

// Get returns the user's directive, creating a default-valued one on first
// read. Callers should know this is not a pure query: a miss persists a new
// empty record.
func (s *DirectiveService) Get(ctx context.Context, userID string) (*models.Directive, error) {
	repo := s.repomanager.Directives(s.db)

	d, err := repo.GetByUserID(ctx, userID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error reading directive: %w", err)
	}

	d, err = repo.Create(ctx, models.NewDirective(userID))
	if err != nil {
		return nil, fmt.Errorf("error creating directive: %w", err)
	}
	return d, nil
}

// Update merges the supplied sections into the stored record (creating it if
// absent), recomputes completion from the post-merge state, and persists.
// The read-merge-write runs in one transaction so completion never derives
// from a stale read. The user's profile score is then updated outside that
// transaction; a crash in between leaves the score stale until the next
// write, an accepted risk.
func (s *DirectiveService) Update(ctx context.Context, userID string, upd *models.DirectiveUpdate) (*models.Directive, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	var merged *models.Directive
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Directives(tx)

		d, err := repo.GetByUserID(ctx, userID)
		created := false
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("error reading directive: %w", err)
			}
			d = models.NewDirective(userID)
			created = true
		}

		applyUpdate(d, upd)
		d.CompletionSteps = ComputeCompletion(d)
		done, total := d.CompletionSteps.Count()
		d.IsComplete = done == total

		if created {
			merged, err = repo.Create(ctx, d)
		} else {
			merged, err = repo.Update(ctx, d)
		}
		if err != nil {
			return fmt.Errorf("error saving directive: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Dual write: the score lives on the user record for cheap dashboard
	// reads. Not transactional with the directive write.
	done, total := merged.CompletionSteps.Count()
	score := ProfileScore(done, total)
	if err := s.repomanager.Users(s.db).UpdateProfileScore(ctx, userID, score); err != nil {
		return nil, fmt.Errorf("error updating profile score: %w", err)
	}

	return merged, nil
}

// IssueCardToken generates a fresh random emergency-card token for the user,
// overwriting (and thereby invalidating) any previous one.
func (s *DirectiveService) IssueCardToken(ctx context.Context, userID string) (*CardToken, error) {
	token, err := common.MakeRandHexString(cardTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}
	expiry := s.now().Add(s.cardTokenValidity)

	if err := s.repomanager.Users(s.db).SetCardToken(ctx, userID, token, expiry); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error storing card token: %w", err)
	}

	return &CardToken{
		Token:   token,
		CardURL: s.frontendURL + "/emergency-card/" + token,
		Expiry:  expiry,
	}, nil
}

// ResolveCard turns a bare token into the redacted emergency-card view.
// Unknown token, expired token, and token holder without a directive all
// collapse into the same ErrorNotFound so an anonymous caller learns nothing
// about why resolution failed.
func (s *DirectiveService) ResolveCard(ctx context.Context, token string) (*card.View, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}

	user, err := s.repomanager.Users(s.db).GetByCardToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error resolving card token: %w", err)
	}
	if user.EmergencyCardTokenExpiry == nil || !user.EmergencyCardTokenExpiry.After(s.now()) {
		return nil, common.ErrorNotFound
	}

	d, err := s.repomanager.Directives(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading directive: %w", err)
	}

	view := card.Project(d)
	return &view, nil
}

// ComputeCompletion derives the five per-section completion flags from the
// record content. Deterministic: same content, same flags.
func ComputeCompletion(d *models.Directive) models.CompletionSteps {
	steps := models.CompletionSteps{
		PersonalInfo:    d.PersonalInfo.FullName != "",
		MedicalInfo:     len(d.MedicalInfo.Allergies) > 0 || len(d.MedicalInfo.Conditions) > 0,
		CarePreferences: d.CarePreferences.CPRPreference != "",
		HealthcareAgent: d.HealthcareAgent.Name != "",
	}
	for _, c := range d.EmergencyContacts {
		if c.Name != "" && c.Phone != "" {
			steps.EmergencyContacts = true
			break
		}
	}
	return steps
}

// ProfileScore converts completed/total steps into a 0-100 percentage,
// rounded to the nearest integer.
func ProfileScore(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func applyUpdate(d *models.Directive, upd *models.DirectiveUpdate) {
	if upd.PersonalInfo != nil {
		d.PersonalInfo = *upd.PersonalInfo
	}
	if upd.EmergencyContacts != nil {
		d.EmergencyContacts = *upd.EmergencyContacts
	}
	if upd.MedicalInfo != nil {
		d.MedicalInfo = *upd.MedicalInfo
	}
	if upd.CarePreferences != nil {
		d.CarePreferences = *upd.CarePreferences
	}
	if upd.HealthcareAgent != nil {
		d.HealthcareAgent = *upd.HealthcareAgent
	}
	if upd.PublicFields != nil {
		d.PublicFields = *upd.PublicFields
	}
}

func validateUpdate(upd *models.DirectiveUpdate) error {
	if upd == nil {
		return fmt.Errorf("%w: empty update", common.ErrorValidation)
	}
	if p := upd.PersonalInfo; p != nil {
		if !slices.Contains(models.BloodTypes, p.BloodType) {
			return fmt.Errorf("%w: invalid blood type %q", common.ErrorValidation, p.BloodType)
		}
	}
	if upd.EmergencyContacts != nil {
		for i, c := range *upd.EmergencyContacts {
			if c.Name == "" || c.Phone == "" {
				return fmt.Errorf("%w: contact %d needs both name and phone", common.ErrorValidation, i+1)
			}
		}
	}
	if cp := upd.CarePreferences; cp != nil {
		if !slices.Contains(models.CPRPreferences, cp.CPRPreference) {
			return fmt.Errorf("%w: invalid CPR preference %q", common.ErrorValidation, cp.CPRPreference)
		}
		if !slices.Contains(models.TrialChoices, cp.MechanicalVentilation) {
			return fmt.Errorf("%w: invalid mechanical ventilation choice %q", common.ErrorValidation, cp.MechanicalVentilation)
		}
		if !slices.Contains(models.TrialChoices, cp.ArtificialNutrition) {
			return fmt.Errorf("%w: invalid artificial nutrition choice %q", common.ErrorValidation, cp.ArtificialNutrition)
		}
		if len(cp.AdditionalWishes) > models.MaxAdditionalWishesLen {
			return fmt.Errorf("%w: additional wishes exceed %d characters", common.ErrorValidation, models.MaxAdditionalWishesLen)
		}
	}
	return nil
}
