package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Emotion is the feeling a diary entry is tagged with
type Emotion string

const (
	EmotionHappy Emotion = "기쁨"
	EmotionGood  Emotion = "좋아요"
	EmotionSoso  Emotion = "그냥 그래요"
	EmotionBad   Emotion = "별로에요"
	EmotionTired Emotion = "힘들어요"
)

// Emotions returns the five emotion labels in display order
func Emotions() []Emotion {
	return []Emotion{EmotionHappy, EmotionGood, EmotionSoso, EmotionBad, EmotionTired}
}

// IsValid reports whether e is one of the five labels
func (e Emotion) IsValid() bool {
	switch e {
	case EmotionHappy, EmotionGood, EmotionSoso, EmotionBad, EmotionTired:
		return true
	}
	return false
}

// Diary constraints
const (
	MaxDiaryTitleLength    = 100
	MaxDiaryContentsLength = 5000
	MaxDiaryTypeLength     = 50

	// DiaryDateLayout is the wire format of a diary date
	DiaryDateLayout = "2006-01-02"
)

// Diary is a single dated diary entry
type Diary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Emotion   Emotion   `json:"emotion"`
	Type      string    `json:"type"`
	Contents  string    `json:"contents"`
	Draw      *string   `json:"draw,omitempty"` // URL of an attached drawing
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// IsOwnedBy returns true if the diary belongs to the given user
func (d *Diary) IsOwnedBy(userID string) bool {
	return d.UserID == userID
}

// CreateDiaryRequest represents a request to write a diary entry
type CreateDiaryRequest struct {
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Emotion  string  `json:"emotion"`
	Type     string  `json:"type"`
	Contents string  `json:"contents"`
	Draw     *string `json:"draw,omitempty"`
}

// Validate validates the create diary request
func (r *CreateDiaryRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(r.Title) > MaxDiaryTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 100 characters or less"})
	}
	if r.Date == "" {
		errors = append(errors, FieldError{Field: "date", Message: "date is required"})
	} else if _, err := ParseDiaryDate(r.Date); err != nil {
		errors = append(errors, FieldError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"})
	}
	if !Emotion(r.Emotion).IsValid() {
		errors = append(errors, FieldError{Field: "emotion", Message: "emotion must be one of the five emotion labels"})
	}
	if utf8.RuneCountInString(r.Type) > MaxDiaryTypeLength {
		errors = append(errors, FieldError{Field: "type", Message: "type must be 50 characters or less"})
	}
	if utf8.RuneCountInString(r.Contents) > MaxDiaryContentsLength {
		errors = append(errors, FieldError{Field: "contents", Message: "contents must be 5000 characters or less"})
	}

	return errors
}

// UpdateDiaryRequest represents a partial update of a diary entry
type UpdateDiaryRequest struct {
	Title    *string `json:"title,omitempty"`
	Date     *string `json:"date,omitempty"`
	Emotion  *string `json:"emotion,omitempty"`
	Type     *string `json:"type,omitempty"`
	Contents *string `json:"contents,omitempty"`
	Draw     *string `json:"draw,omitempty"`
}

// Validate validates only the fields that are present
func (r *UpdateDiaryRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			errors = append(errors, FieldError{Field: "title", Message: "title cannot be empty"})
		} else if utf8.RuneCountInString(*r.Title) > MaxDiaryTitleLength {
			errors = append(errors, FieldError{Field: "title", Message: "title must be 100 characters or less"})
		}
	}
	if r.Date != nil {
		if _, err := ParseDiaryDate(*r.Date); err != nil {
			errors = append(errors, FieldError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"})
		}
	}
	if r.Emotion != nil && !Emotion(*r.Emotion).IsValid() {
		errors = append(errors, FieldError{Field: "emotion", Message: "emotion must be one of the five emotion labels"})
	}
	if r.Type != nil && utf8.RuneCountInString(*r.Type) > MaxDiaryTypeLength {
		errors = append(errors, FieldError{Field: "type", Message: "type must be 50 characters or less"})
	}
	if r.Contents != nil && utf8.RuneCountInString(*r.Contents) > MaxDiaryContentsLength {
		errors = append(errors, FieldError{Field: "contents", Message: "contents must be 5000 characters or less"})
	}

	return errors
}

// IsEmpty returns true if the update carries no fields
func (r *UpdateDiaryRequest) IsEmpty() bool {
	return r.Title == nil && r.Date == nil && r.Emotion == nil &&
		r.Type == nil && r.Contents == nil && r.Draw == nil
}

// ParseDiaryDate parses a YYYY-MM-DD date as midnight UTC
func ParseDiaryDate(s string) (time.Time, error) {
	return time.ParseInLocation(DiaryDateLayout, s, time.UTC)
}

// Period is a calendar month used to scope diary queries
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod builds a period, rejecting months outside 1-12 and years outside 1-9999
func NewPeriod(year, month int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("invalid year %d", year)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid month %d", month)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the period containing t, in UTC
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// Start returns the first instant of the period
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant after the period
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t falls inside [Start, End)
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// EmotionTally counts diary entries per emotion for one user and period
type EmotionTally struct {
	Happy int `json:"happy"`
	Good  int `json:"good"`
	Soso  int `json:"soso"`
	Bad   int `json:"bad"`
	Tired int `json:"tired"`
}

// Total returns the number of entries counted
func (t EmotionTally) Total() int {
	return t.Happy + t.Good + t.Soso + t.Bad + t.Tired
}

// TallyEmotions counts exact matches of the five labels.
// Values matching no label are not counted.
func TallyEmotions(emotions []string) EmotionTally {
	var t EmotionTally
	for _, e := range emotions {
		switch Emotion(e) {
		case EmotionHappy:
			t.Happy++
		case EmotionGood:
			t.Good++
		case EmotionSoso:
			t.Soso++
		case EmotionBad:
			t.Bad++
		case EmotionTired:
			t.Tired++
		}
	}
	return t
}
