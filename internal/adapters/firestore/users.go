package firestoread

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"startrip/internal/domain"
)

const usersColName = "users"

type userDoc struct {
	Email       string         `firestore:"email"`
	DisplayName string         `firestore:"display_name"`
	PhotoURL    string         `firestore:"photo_url"`
	CreatedAt   time.Time      `firestore:"created_at"`
	LastLoginAt time.Time      `firestore:"last_login_at"`
	Preferences map[string]any `firestore:"preferences,omitempty"`
}

// UserStore keeps user profiles in the "users" collection keyed by user id.
type UserStore struct {
	cli *firestore.Client
}

// New opens a client. credentialsFile may be empty to use ambient credentials.
func New(ctx context.Context, projectID, credentialsFile string) (*UserStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	cli, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &UserStore{cli: cli}, nil
}

func (s *UserStore) Close() error { return s.cli.Close() }

func (s *UserStore) col() *firestore.CollectionRef { return s.cli.Collection(usersColName) }

func (s *UserStore) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	snap, err := s.col().Doc(userID).Get(ctx)
	if err != nil {
		// Get returns a non-nil snapshot alongside the NotFound error
		if snap != nil && !snap.Exists() {
			return domain.UserProfile{}, domain.ErrNotFound
		}
		return domain.UserProfile{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	return fromSnapshot(snap)
}

func (s *UserStore) UpsertProfile(ctx context.Context, p domain.UserProfile) error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	_, err := s.col().Doc(p.UserID).Set(ctx, userDoc{
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		CreatedAt:   p.CreatedAt,
		LastLoginAt: p.LastLoginAt,
		Preferences: p.Preferences,
	})
	if err != nil {
		return fmt.Errorf("save user %s: %w", p.UserID, err)
	}
	return nil
}

// WatchProfile streams snapshots on a goroutine. Deleted or missing documents are skipped.
func (s *UserStore) WatchProfile(ctx context.Context, userID string, fn func(domain.UserProfile)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.col().Doc(userID).Snapshots(ctx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Str("user", userID).Msg("profile watch stopped")
				}
				return
			}
			if !snap.Exists() {
				continue
			}
			p, err := fromSnapshot(snap)
			if err != nil {
				log.Warn().Err(err).Str("user", userID).Msg("skip undecodable profile")
				continue
			}
			fn(p)
		}
	}()
	return cancel, nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (domain.UserProfile, error) {
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.UserProfile{}, errors.Join(domain.ErrInvalidInput, err)
	}
	return domain.UserProfile{
		UserID:      snap.Ref.ID,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		PhotoURL:    d.PhotoURL,
		CreatedAt:   d.CreatedAt,
		LastLoginAt: d.LastLoginAt,
		Preferences: d.Preferences,
	}, nil
}
