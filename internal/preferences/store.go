package preferences

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"babygo/app/internal/names"
)

// Repository defines the durable per-profile preferences.
type Repository interface {
	LoadFavorites(ctx context.Context, profileID string) ([]names.Suggestion, error)
	SaveFavorites(ctx context.Context, profileID string, favorites []names.Suggestion) error
	LoadLanguage(ctx context.Context, profileID string) (names.Language, bool, error)
	SaveLanguage(ctx context.Context, profileID string, language names.Language) error
}

// GormStore persists preferences using a Gorm database connection.
type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewStore constructs a Gorm-backed preference store.
func NewStore(db *gorm.DB, logger *logrus.Logger) (*GormStore, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormStore{db: db, logger: logger}, nil
}

var _ Repository = (*GormStore)(nil)

// LoadFavorites returns the saved favorites of a profile. A missing entry yields an empty list; an
// undecodable entry is logged and also yields an empty list.
func (s *GormStore) LoadFavorites(ctx context.Context, profileID string) ([]names.Suggestion, error) {
	value, found, err := s.get(ctx, profileID, KeyFavorites)
	if err != nil {
		return nil, err
	}

	favorites := []names.Suggestion{}
	if !found {
		return favorites, nil
	}

	if err := json.Unmarshal([]byte(value), &favorites); err != nil || favorites == nil {
		if s.logger != nil {
			entry := s.logger.WithFields(logrus.Fields{"profile": profileID, "key": KeyFavorites})
			if err != nil {
				entry = entry.WithField("error", err.Error())
			}
			entry.Warn("discarding unreadable favorites")
		}
		return []names.Suggestion{}, nil
	}

	return favorites, nil
}

// SaveFavorites rewrites the whole favorites list of a profile.
func (s *GormStore) SaveFavorites(ctx context.Context, profileID string, favorites []names.Suggestion) error {
	if favorites == nil {
		favorites = []names.Suggestion{}
	}

	payload, err := json.Marshal(favorites)
	if err != nil {
		return eris.Wrap(err, "encoding favorites")
	}

	return s.put(ctx, profileID, KeyFavorites, string(payload))
}

// LoadLanguage returns the saved language of a profile. The boolean reports whether a valid
// preference was stored; otherwise the default language is returned.
func (s *GormStore) LoadLanguage(ctx context.Context, profileID string) (names.Language, bool, error) {
	value, found, err := s.get(ctx, profileID, KeyLanguage)
	if err != nil {
		return names.DefaultLanguage, false, err
	}

	if !found {
		return names.DefaultLanguage, false, nil
	}

	language, parseErr := names.ParseLanguage(value)
	if parseErr != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"profile": profileID, "value": value}).Warn("ignoring unknown stored language")
		}
		return names.DefaultLanguage, false, nil
	}

	return language, true, nil
}

// SaveLanguage stores the language preference of a profile.
func (s *GormStore) SaveLanguage(ctx context.Context, profileID string, language names.Language) error {
	parsed, err := names.ParseLanguage(string(language))
	if err != nil {
		return err
	}

	return s.put(ctx, profileID, KeyLanguage, string(parsed))
}

func (s *GormStore) get(ctx context.Context, profileID, key string) (string, bool, error) {
	trimmed := strings.TrimSpace(profileID)
	if trimmed == "" {
		return "", false, eris.New("profile id is required")
	}

	var entry Entry
	err := s.db.WithContext(ctx).First(&entry, "profile_id = ? AND pref_key = ?", trimmed, key).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		s.logError(logrus.Fields{"profile": trimmed, "key": key}, err, "loading preference")
		return "", false, eris.Wrapf(err, "loading preference %s", key)
	}

	return entry.Value, true, nil
}

func (s *GormStore) put(ctx context.Context, profileID, key, value string) error {
	trimmed := strings.TrimSpace(profileID)
	if trimmed == "" {
		return eris.New("profile id is required")
	}

	entry := Entry{ProfileID: trimmed, Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		s.logError(logrus.Fields{"profile": trimmed, "key": key}, err, "saving preference")
		return eris.Wrapf(err, "saving preference %s", key)
	}

	return nil
}

func (s *GormStore) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
