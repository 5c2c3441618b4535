package book

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field names as they appear on the wire.
const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldReleaseYear = "release_year"
)

// Messages reported for invalid fields.
const (
	MsgRequired = "This field is required."
	MsgNull     = "This field may not be null."
	MsgBlank    = "This field may not be blank."
)

// ValidateCreate checks a full set of fields, as used by create and replace.
func ValidateCreate(f Fields) error {
	var verr ValidationError
	if !malformed(&verr, f, FieldTitle) {
		checkRequired(&verr, FieldTitle, f.Title, MaxTitleLength)
	}
	if !malformed(&verr, f, FieldAuthor) {
		checkRequired(&verr, FieldAuthor, f.Author, MaxAuthorLength)
	}
	if !malformed(&verr, f, FieldReleaseYear) {
		checkReleaseYear(&verr, f.ReleaseYear)
	}
	return verr.Err()
}

// ValidatePatch checks only the fields that were supplied.
func ValidatePatch(f Fields) error {
	var verr ValidationError
	if !malformed(&verr, f, FieldTitle) && f.Title.Set {
		checkRequired(&verr, FieldTitle, f.Title, MaxTitleLength)
	}
	if !malformed(&verr, f, FieldAuthor) && f.Author.Set {
		checkRequired(&verr, FieldAuthor, f.Author, MaxAuthorLength)
	}
	if !malformed(&verr, f, FieldReleaseYear) {
		checkReleaseYear(&verr, f.ReleaseYear)
	}
	return verr.Err()
}

func malformed(verr *ValidationError, f Fields, name string) bool {
	msg, ok := f.Malformed[name]
	if ok {
		verr.Add(name, msg)
	}
	return ok
}

func checkRequired(verr *ValidationError, name string, v OptionalString, maxLen int) {
	switch {
	case !v.Set:
		verr.Add(name, MsgRequired)
	case v.Value == nil:
		verr.Add(name, MsgNull)
	default:
		s := strings.TrimSpace(*v.Value)
		if s == "" {
			verr.Add(name, MsgBlank)
			return
		}
		if utf8.RuneCountInString(s) > maxLen {
			verr.Add(name, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
		}
	}
}

func checkReleaseYear(verr *ValidationError, v OptionalInt) {
	if !v.Set || v.Value == nil {
		return
	}
	year := *v.Value
	if year > MaxReleaseYear {
		verr.Add(FieldReleaseYear, fmt.Sprintf("Ensure this value is less than or equal to %d.", MaxReleaseYear))
	}
	if year < MinReleaseYear {
		verr.Add(FieldReleaseYear, fmt.Sprintf("Ensure this value is greater than or equal to %d.", MinReleaseYear))
	}
}
