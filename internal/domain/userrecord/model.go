package userrecord

import (
	"errors"
	"fmt"
)

// Batch size bounds for user creation.
const (
	MinCreateCount = 1
	MaxCreateCount = 100
)

// Grade values offered by the creation form. The spellings match what the
// remote platform stores, including "3th".
const (
	GradeKindergarten = "Kindergarten"
	Grade1st          = "1st"
	Grade2nd          = "2nd"
	Grade3th          = "3th"
	Grade4th          = "4th"
	Grade5th          = "5th"
	Grade6th          = "6th"
	Grade7th          = "7th"
)

// Language values offered by the creation form.
const (
	LanguageHebrew     = "Hebrew"
	LanguageMacedonian = "Macedonian"
	LanguageEnglish    = "English"
	LanguageArabic     = "Arabic"
)

// Grades lists the valid grades in display order.
var Grades = []string{GradeKindergarten, Grade1st, Grade2nd, Grade3th, Grade4th, Grade5th, Grade6th, Grade7th}

// Languages lists the valid languages in display order.
var Languages = []string{LanguageHebrew, LanguageMacedonian, LanguageEnglish, LanguageArabic}

// Domain errors.
var (
	ErrInvalidCount    = fmt.Errorf("count must be between %d and %d", MinCreateCount, MaxCreateCount)
	ErrInvalidGrade    = errors.New("invalid grade")
	ErrInvalidLanguage = errors.New("invalid language")
	ErrEmptyOwner      = errors.New("owner experimenter is required")
	ErrEmptyUserID     = errors.New("user id is required")
)

// Record is one row of the users grid.
// INVARIANT: RowID is unique within the row set it belongs to
type Record struct {
	RowID        int    `json:"id"`
	UserID       string `json:"user_id"`
	LevelsPlayed int    `json:"levels_played"`
	Experimenter string `json:"experimenter"`
	Grade        string `json:"grade"`
}

// Payload is a record as the listing collaborator returns it.
type Payload struct {
	UserID       string `json:"user_id"`
	LevelsPlayed int    `json:"levels_played"`
	Experimenter string `json:"experimenter"`
	Grade        string `json:"grade"`
}

// CreateParams are the validated inputs of a creation batch.
type CreateParams struct {
	Owner    string
	Count    int
	Grade    string
	Language string
}

// Validate checks the creation parameters.
// PRE: none
// POST: Returns nil if Owner is set, Count is in range, Grade and Language are known values
func (p CreateParams) Validate() error {
	if p.Owner == "" {
		return ErrEmptyOwner
	}
	if p.Count < MinCreateCount || p.Count > MaxCreateCount {
		return ErrInvalidCount
	}
	if !contains(Grades, p.Grade) {
		return ErrInvalidGrade
	}
	if !contains(Languages, p.Language) {
		return ErrInvalidLanguage
	}
	return nil
}

// FromPayloads converts listing payloads into records numbered 1..n in slice order.
// PRE: payloads are in the order the remote returned them
// POST: Record i has RowID i+1
func FromPayloads(payloads []Payload) []Record {
	records := make([]Record, len(payloads))
	for i, p := range payloads {
		records[i] = Record{
			RowID:        i + 1,
			UserID:       p.UserID,
			LevelsPlayed: p.LevelsPlayed,
			Experimenter: p.Experimenter,
			Grade:        p.Grade,
		}
	}
	return records
}

// NewCreated builds records for freshly issued user ids. RowIDs are left at
// zero; the grid assigns them on append.
// PRE: params are valid
// POST: One record per id with LevelsPlayed 0, owned by params.Owner
func NewCreated(ids []string, params CreateParams) ([]Record, error) {
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, ErrEmptyUserID
		}
		records = append(records, Record{
			UserID:       id,
			LevelsPlayed: 0,
			Experimenter: params.Owner,
			Grade:        params.Grade,
		})
	}
	return records, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
