package letter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rondalog/rondalog/internal/ai"
)

type fakeGenerator struct {
	resp  *ai.LetterResponse
	err   error
	calls []ai.LetterRequest
}

func (f *fakeGenerator) GenerateLetter(_ context.Context, req ai.LetterRequest) (*ai.LetterResponse, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

var ref = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestValidateMissingRoleIsReportedAlone(t *testing.T) {
	_, err := Validate(MedicalLeave, map[string]any{
		"employeeName": "X",
		"startDate":    "2024-03-10",
		"durationKind": "days",
		"days":         2,
	}, ref)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate error = %v, want *ValidationError", err)
	}
	if diff := cmp.Diff([]string{"role"}, verr.Fields); diff != "" {
		t.Fatalf("Fields mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateListsEveryProblem(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		vars map[string]any
		want []string
	}{
		{
			name: "empty medical leave",
			kind: MedicalLeave,
			vars: map[string]any{},
			want: []string{"employeeName", "role", "startDate", "durationKind"},
		},
		{
			name: "days variant needs positive days",
			kind: MedicalLeave,
			vars: map[string]any{"employeeName": "X", "role": "Vigilante", "startDate": "10/03/2024", "durationKind": "days", "days": 0},
			want: []string{"days"},
		},
		{
			name: "days beyond a year",
			kind: MedicalLeave,
			vars: map[string]any{"employeeName": "X", "role": "Vigilante", "startDate": "10/03/2024", "durationKind": "days", "days": "9000000000000000"},
			want: []string{"days"},
		},
		{
			name: "days as a huge float",
			kind: MedicalLeave,
			vars: map[string]any{"employeeName": "X", "role": "Vigilante", "startDate": "10/03/2024", "durationKind": "days", "days": 2e9},
			want: []string{"days"},
		},
		{
			name: "days one past the cap",
			kind: MedicalLeave,
			vars: map[string]any{"employeeName": "X", "role": "Vigilante", "startDate": "10/03/2024", "durationKind": "days", "days": 367},
			want: []string{"days"},
		},
		{
			name: "hours variant needs token",
			kind: MedicalLeave,
			vars: map[string]any{"employeeName": "X", "role": "Vigilante", "startDate": "10/03/2024", "durationKind": "hours", "days": 3},
			want: []string{"hoursToken"},
		},
		{
			name: "unknown duration kind hides variant fields",
			kind: MedicalLeave,
			vars: map[string]any{"employeeName": " ", "role": "Vigilante", "startDate": "10/03/2024", "durationKind": "weeks"},
			want: []string{"employeeName", "durationKind"},
		},
		{
			name: "shift swap with bad dates",
			kind: ShiftSwap,
			vars: map[string]any{"coveringEmployeeName": "A", "coveringWorkDate": "31/02/2024", "coveredEmployeeName": "B"},
			want: []string{"coveringWorkDate", "compensationDate"},
		},
		{
			name: "tardiness with blank reason",
			kind: Tardiness,
			vars: map[string]any{"employeeName": "X", "role": "Vigilante", "date": "10/03/2024", "reason": "  "},
			want: []string{"reason"},
		},
		{
			name: "non text value",
			kind: Tardiness,
			vars: map[string]any{"employeeName": true, "role": "Vigilante", "date": "10/03/2024", "reason": "ônibus"},
			want: []string{"employeeName"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.kind, tt.vars, ref)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate error = %v, want *ValidationError", err)
			}
			if verr.Kind != tt.kind {
				t.Fatalf("Kind = %s, want %s", verr.Kind, tt.kind)
			}
			if diff := cmp.Diff(tt.want, verr.Fields); diff != "" {
				t.Fatalf("Fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateNormalizesAndEnriches(t *testing.T) {
	got, err := Validate(MedicalLeave, map[string]any{
		"employeeName": " Maria Souza ",
		"role":         "Vigilante",
		"startDate":    "2024-03-10",
		"durationKind": "Dias",
		"days":         "3",
	}, ref)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := map[string]string{
		"employeeName": "Maria Souza",
		"role":         "Vigilante",
		"startDate":    "10/03/2024",
		"durationKind": "days",
		"days":         "3",
		"dateList":     "10, 11 e 12/03/2024",
		"endDate":      "12/03/2024",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Validate mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateAcceptsNumbersAndRelativeDates(t *testing.T) {
	got, err := Validate(MedicalLeave, map[string]any{
		"employeeName": "X",
		"role":         "Vigilante",
		"startDate":    "ontem",
		"durationKind": "days",
		"days":         2.0,
	}, ref)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got["startDate"] != "14/03/2024" || got["days"] != "2" || got["dateList"] != "14 e 15/03/2024" {
		t.Fatalf("Validate = %v", got)
	}

	if _, err := Validate(MedicalLeave, map[string]any{
		"employeeName": "X", "role": "V", "startDate": "2024-03-10", "durationKind": "days", "days": 1.5,
	}, ref); err == nil {
		t.Fatal("fractional days accepted")
	}
}

func TestValidateAcceptsFullYearLeave(t *testing.T) {
	got, err := Validate(MedicalLeave, map[string]any{
		"employeeName": "X", "role": "V", "startDate": "01/01/2024", "durationKind": "days", "days": 366,
	}, ref)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got["endDate"] != "31/12/2024" {
		t.Fatalf("endDate = %q, want 31/12/2024", got["endDate"])
	}
}

func TestValidateOptionalRole(t *testing.T) {
	vars := map[string]any{
		"coveringEmployeeName": "Ana",
		"coveringWorkDate":     "10/03/2024",
		"coveredEmployeeName":  "Bruno",
		"compensationDate":     "12/03/2024",
	}
	got, err := Validate(ShiftSwap, vars, ref)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, ok := got["role"]; ok {
		t.Fatal("absent optional role should not be sent")
	}
}

func TestComposeValidatesBeforeCallingGenerator(t *testing.T) {
	gen := &fakeGenerator{resp: &ai.LetterResponse{LetterText: "Carta"}}
	c := NewComposer(gen, time.Second, nil)

	_, err := c.Compose(context.Background(), Tardiness, map[string]any{"employeeName": "X"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Compose error = %v, want *ValidationError", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator called %d times for an invalid request", len(gen.calls))
	}
}

func TestComposeDelegates(t *testing.T) {
	gen := &fakeGenerator{resp: &ai.LetterResponse{LetterText: "  Declaro que...  "}}
	c := NewComposer(gen, time.Second, nil)

	got, err := c.Compose(context.Background(), Tardiness, map[string]any{
		"employeeName": "Maria", "role": "Vigilante", "date": "10/03/2024", "reason": "Pneu furado",
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got.Text != "Declaro que..." {
		t.Fatalf("Text = %q", got.Text)
	}
	if len(gen.calls) != 1 || gen.calls[0].Type != "Tardiness" || gen.calls[0].Variables["date"] != "10/03/2024" {
		t.Fatalf("generator calls = %+v", gen.calls)
	}
}

func TestComposeSurfacesRemoteFailures(t *testing.T) {
	vars := map[string]any{"employeeName": "Maria", "role": "Vigilante", "date": "10/03/2024", "reason": "Chuva"}
	tests := []struct {
		name string
		gen  *fakeGenerator
		kind string
	}{
		{name: "network", gen: &fakeGenerator{err: &ai.NetworkError{Op: "letter", Err: context.DeadlineExceeded}}, kind: ai.FailureNetwork},
		{name: "status", gen: &fakeGenerator{err: &ai.RemoteServiceError{Status: 503}}, kind: ai.FailureStatus},
		{name: "empty text", gen: &fakeGenerator{resp: &ai.LetterResponse{LetterText: " "}}, kind: ai.FailureMalformed},
		{name: "nil response", gen: &fakeGenerator{}, kind: ai.FailureMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewComposer(tt.gen, time.Second, nil).Compose(context.Background(), Tardiness, vars)
			if err == nil {
				t.Fatalf("Compose = %+v, want error", got)
			}
			if kind, ok := ai.FailureKind(err); !ok || kind != tt.kind {
				t.Fatalf("FailureKind(%v) = %q, %v, want %q", err, kind, ok, tt.kind)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"MedicalLeave":  MedicalLeave,
		"medical_leave": MedicalLeave,
		"atestado":      MedicalLeave,
		"Shift Swap":    ShiftSwap,
		"atraso":        Tardiness,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("vacation"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("ParseKind(vacation) error = %v, want ErrUnknownKind", err)
	}
}

func TestRequiredFields(t *testing.T) {
	got, err := RequiredFields(MedicalLeave)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"employeeName", "role", "startDate", "durationKind",
		"days (durationKind=days)", "hoursToken (durationKind=hours)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("RequiredFields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVariables(t *testing.T) {
	got, err := ParseVariables([]string{"employeeName=Maria Souza", "reason=a=b"})
	if err != nil {
		t.Fatal(err)
	}
	if got["employeeName"] != "Maria Souza" || got["reason"] != "a=b" {
		t.Fatalf("ParseVariables = %v", got)
	}
	if _, err := ParseVariables([]string{"novalue"}); err == nil {
		t.Fatal("ParseVariables accepted a pair without =")
	}
}
