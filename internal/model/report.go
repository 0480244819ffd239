package model

import (
	"fmt"
	"strings"
	"time"
)

// Source says where a raw report came from.
type Source string

const (
	SourceManual     Source = "manual"
	SourceChatExport Source = "chat_export"
)

// ParseSource reads a source name from the command line. Empty means manual.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceManual, "":
		return SourceManual, nil
	case SourceChatExport, "chat", "export":
		return SourceChatExport, nil
	}
	return "", fmt.Errorf("unknown report source %q (want manual or chat_export)", s)
}

// RawReport is the text a staff member submitted. It is never modified after
// submission; corrections live in CorrectionResult.
type RawReport struct {
	Text              string `json:"text"`
	Source            Source `json:"source"`
	WantsEmailVariant bool   `json:"wants_email_variant"`
}

// CorrectionResult is produced once per RawReport by the normalizer.
type CorrectionResult struct {
	CorrectedText string `json:"corrected_text"`
	EmailVariant  string `json:"email_variant,omitempty"`
	UsedFallback  bool   `json:"used_fallback"`
}

// Period is the coarse day/night split of a shift.
type Period string

const (
	PeriodDay   Period = "Day"
	PeriodNight Period = "Night"
)

// ShiftCode is one of the four rostering slots: day or night crossed with the
// parity of the calendar day.
type ShiftCode string

const (
	DiurnoPar    ShiftCode = "DiurnoPar"
	DiurnoImpar  ShiftCode = "DiurnoImpar"
	NoturnoPar   ShiftCode = "NoturnoPar"
	NoturnoImpar ShiftCode = "NoturnoImpar"
)

// ShiftCodes lists every code in roster order.
var ShiftCodes = []ShiftCode{DiurnoPar, DiurnoImpar, NoturnoPar, NoturnoImpar}

// ExtractedFields holds the best-effort structured fields. A nil field means
// no rule matched; it is never a guess.
type ExtractedFields struct {
	Date       *Date      `json:"date,omitempty"`
	Time       *TimeOfDay `json:"time,omitempty"`
	Location   *string    `json:"location,omitempty"`
	Incident   *string    `json:"incident,omitempty"`
	ShiftCode  *ShiftCode `json:"shift_code,omitempty"`
	CategoryID *string    `json:"category_id,omitempty"`
}

// Category is one entry of the incident catalog.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"name"`
}

// Catalog is the ordered, read-only category list supplied per invocation.
type Catalog []Category

// Lookup returns the category with the given id.
func (c Catalog) Lookup(id string) (Category, bool) {
	for _, cat := range c {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// DraftRecord is the pipeline output awaiting human confirmation.
type DraftRecord struct {
	ID         string           `json:"id"`
	Source     Source           `json:"source"`
	ReceivedAt time.Time        `json:"received_at"`
	RawText    string           `json:"raw_text"`
	Correction CorrectionResult `json:"correction"`
	Fields     ExtractedFields  `json:"fields"`
	Period     *Period          `json:"period,omitempty"`
	Missing    []string         `json:"missing,omitempty"`
}

// Field names used in DraftRecord.Missing.
const (
	FieldDate       = "date"
	FieldTime       = "time"
	FieldLocation   = "location"
	FieldShiftCode  = "shiftCode"
	FieldCategoryID = "categoryId"
)

// MissingFields lists the absent fields in display order.
func (f ExtractedFields) MissingFields() []string {
	var missing []string
	if f.Date == nil {
		missing = append(missing, FieldDate)
	}
	if f.Time == nil {
		missing = append(missing, FieldTime)
	}
	if f.Location == nil {
		missing = append(missing, FieldLocation)
	}
	if f.ShiftCode == nil {
		missing = append(missing, FieldShiftCode)
	}
	if f.CategoryID == nil {
		missing = append(missing, FieldCategoryID)
	}
	return missing
}
