package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/store"
)

const (
	profilesCollection = "user_profiles"
	historyCollection  = "pattern_history"
)

// Repository persists user profiles in a document store. Every merge
// runs as a transactional read-modify-write on the user's single
// profile document, so concurrent analyses for the same user cannot
// silently lose each other's contributions.
type Repository struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewRepository creates a profile repository.
func NewRepository(s store.DocumentStore, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: s, logger: logger}
}

// newProfile seeds an empty profile with the default per-role
// instructions.
func newProfile(userID string, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:           userID,
		Patterns:         []Pattern{},
		Labels:           []DynamicLabel{},
		Clusters:         []LabelCluster{},
		BaseInstructions: DefaultInstructions(),
		PreferredRole:    DefaultRole,
		UpdatedAt:        now,
	}
}

// GetOrCreate returns the user's profile, lazily creating and persisting
// a seeded one on first access.
func (r *Repository) GetOrCreate(ctx context.Context, userID string) (*UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}

	var p UserProfile
	err := r.store.Get(ctx, profilesCollection, userID, &p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}

	created := newProfile(userID, time.Now().UTC())
	if err := r.store.Set(ctx, profilesCollection, userID, created); err != nil {
		return nil, fmt.Errorf("seeding profile %s: %w", userID, err)
	}
	r.logger.Info("created profile", zap.String("user_id", userID))
	return created, nil
}

// Get returns the user's profile or ErrProfileNotFound.
func (r *Repository) Get(ctx context.Context, userID string) (*UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}

	var p UserProfile
	err := r.store.Get(ctx, profilesCollection, userID, &p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}
	return &p, nil
}

// mutate runs fn over the user's profile inside a transactional
// read-modify-write, seeding a default profile when none exists.
func (r *Repository) mutate(ctx context.Context, userID string, fn func(p *UserProfile) error) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}

	return r.store.Update(ctx, profilesCollection, userID, func(data []byte, exists bool) (any, error) {
		now := time.Now().UTC()
		p := newProfile(userID, now)
		if exists {
			if err := unmarshalProfile(data, p); err != nil {
				return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
			}
		}
		if err := fn(p); err != nil {
			return nil, err
		}
		p.UpdatedAt = now
		return p, nil
	})
}

// AddPattern upserts a pattern by (name, category): replace on match,
// append otherwise. A history entry is recorded best-effort.
func (r *Repository) AddPattern(ctx context.Context, userID string, pattern Pattern) error {
	pattern.Normalize()
	if err := pattern.Validate(); err != nil {
		return err
	}

	err := r.mutate(ctx, userID, func(p *UserProfile) error {
		for i, existing := range p.Patterns {
			if existing.Name == pattern.Name && existing.Category == pattern.Category {
				p.Patterns[i] = pattern
				return nil
			}
		}
		p.Patterns = append(p.Patterns, pattern)
		return nil
	})
	if err != nil {
		return err
	}

	// History is an append-only audit trail; losing one entry never
	// fails the merge.
	historyKey := userID + "/" + uuid.NewString()
	if herr := r.store.Set(ctx, historyCollection, historyKey, pattern); herr != nil {
		r.logger.Warn("recording pattern history failed",
			zap.String("user_id", userID),
			zap.String("pattern", pattern.Name),
			zap.Error(herr))
	}
	return nil
}

// PatternHistory returns the user's recorded pattern observations,
// newest first.
func (r *Repository) PatternHistory(ctx context.Context, userID string, limit int) ([]Pattern, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}

	docs, err := r.store.Query(ctx, historyCollection, store.QueryOptions{
		Prefix:     userID + "/",
		Limit:      limit,
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("loading pattern history %s: %w", userID, err)
	}

	history := make([]Pattern, 0, len(docs))
	for _, doc := range docs {
		var p Pattern
		if err := unmarshalProfile(doc.Data, &p); err != nil {
			r.logger.Warn("skipping undecodable history entry",
				zap.String("key", doc.Key), zap.Error(err))
			continue
		}
		history = append(history, p)
	}
	return history, nil
}

// AddLabel upserts a label by exact text match. A repeat observation
// folds into the stored label; a new text appends.
func (r *Repository) AddLabel(ctx context.Context, userID string, label DynamicLabel) error {
	if err := label.Validate(); err != nil {
		return err
	}

	return r.mutate(ctx, userID, func(p *UserProfile) error {
		now := time.Now().UTC()
		for i := range p.Labels {
			if p.Labels[i].Text == label.Text {
				p.Labels[i].MergeObservation(label, now)
				return nil
			}
		}
		if label.FirstSeen.IsZero() {
			label.FirstSeen = now
		}
		if label.LastSeen.IsZero() {
			label.LastSeen = now
		}
		p.Labels = append(p.Labels, label)
		return nil
	})
}

// UpsertCluster replaces the cluster with a matching cluster_id or
// appends a new one.
func (r *Repository) UpsertCluster(ctx context.Context, userID string, cluster LabelCluster) error {
	if err := cluster.Validate(); err != nil {
		return err
	}

	return r.mutate(ctx, userID, func(p *UserProfile) error {
		for i, existing := range p.Clusters {
			if existing.ClusterID == cluster.ClusterID {
				p.Clusters[i] = cluster
				return nil
			}
		}
		p.Clusters = append(p.Clusters, cluster)
		return nil
	})
}

// AddCategory upserts a dynamic category by name, bumping usage on
// repeat use.
func (r *Repository) AddCategory(ctx context.Context, userID string, category DynamicCategory) error {
	if category.Name == "" {
		return errors.New("category name cannot be empty")
	}

	return r.mutate(ctx, userID, func(p *UserProfile) error {
		now := time.Now().UTC()
		for i := range p.Categories {
			if p.Categories[i].Name == category.Name {
				p.Categories[i].UsageCount++
				p.Categories[i].LastUsed = now
				if category.Description != "" {
					p.Categories[i].Description = category.Description
				}
				return nil
			}
		}
		if category.UsageCount < 1 {
			category.UsageCount = 1
		}
		category.LastUsed = now
		p.Categories = append(p.Categories, category)
		return nil
	})
}

// AddTendency merges a tendency by label name, averaging strength over
// all observations.
func (r *Repository) AddTendency(ctx context.Context, userID string, tendency Tendency) error {
	if tendency.Label == "" {
		return errors.New("tendency label cannot be empty")
	}

	return r.mutate(ctx, userID, func(p *UserProfile) error {
		now := time.Now().UTC()
		for i := range p.Tendencies {
			if p.Tendencies[i].Label == tendency.Label {
				t := &p.Tendencies[i]
				// Running average over all observations.
				t.Strength = (t.Strength*float64(t.Observations) + tendency.Strength) / float64(t.Observations+1)
				t.Observations++
				if tendency.Context != "" {
					t.Context = tendency.Context
				}
				t.LastUpdated = now
				return nil
			}
		}
		tendency.Observations = 1
		tendency.LastUpdated = now
		p.Tendencies = append(p.Tendencies, tendency)
		return nil
	})
}

// UpdateInstructions replaces the profile's base instruction set.
func (r *Repository) UpdateInstructions(ctx context.Context, userID string, instructions []RoleInstruction) error {
	return r.mutate(ctx, userID, func(p *UserProfile) error {
		p.BaseInstructions = instructions
		return nil
	})
}

// UpdatePersonalizedInstructions stores the composed instruction text.
func (r *Repository) UpdatePersonalizedInstructions(ctx context.Context, userID string, instructions string) error {
	return r.mutate(ctx, userID, func(p *UserProfile) error {
		p.PersonalizedInstructions = instructions
		return nil
	})
}

// UpdatePreferredRole stores the user's preferred role. Roles outside
// the valid set are rejected with ErrInvalidRole.
func (r *Repository) UpdatePreferredRole(ctx context.Context, userID string, role string) error {
	if !IsValidRole(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return r.mutate(ctx, userID, func(p *UserProfile) error {
		p.PreferredRole = role
		return nil
	})
}

func unmarshalProfile(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// UpdateInsights stores the derived insight record.
func (r *Repository) UpdateInsights(ctx context.Context, userID string, insights *Insights) error {
	return r.mutate(ctx, userID, func(p *UserProfile) error {
		p.Insights = insights
		return nil
	})
}
