package preferences

import "time"

const (
	// KeyFavorites holds the JSON array of saved suggestions.
	KeyFavorites = "babygo_favorites"
	// KeyLanguage holds the two-letter display language.
	KeyLanguage = "babygo_language"
)

// Entry is one persisted key-value preference of a visitor profile.
type Entry struct {
	ID        uint   `gorm:"primaryKey"`
	ProfileID string `gorm:"size:64;not null;uniqueIndex:idx_preferences_profile_key"`
	Key       string `gorm:"column:pref_key;size:64;not null;uniqueIndex:idx_preferences_profile_key"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName defines the table name for the Entry model.
func (Entry) TableName() string {
	return "preferences"
}
