package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalCorrect(t *testing.T) {
	c := NewLocalCorrector(DefaultTypoTable())
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "typos spacing and terminal",
			in:   "  ronda   no patio ,sem alteracao  ",
			want: "Ronda no pátio, sem alteração.",
		},
		{
			name: "label colon gets a space but times do not",
			in:   "hora:07:15 tudo ok",
			want: "Hora: 07:15 tudo ok.",
		},
		{
			name: "initial capital is kept on substitution",
			in:   "Nao houve ocorrencia",
			want: "Não houve ocorrência.",
		},
		{
			name: "exotic whitespace",
			in:   "ronda\u00a0\u00a0feita\u200b\tno portao",
			want: "Ronda feita no portão.",
		},
		{
			name: "trailing comma becomes period",
			in:   "tudo tranquilo,",
			want: "Tudo tranquilo.",
		},
		{
			name: "terminal punctuation kept",
			in:   "veiculo suspeito!",
			want: "Veículo suspeito!",
		},
		{
			name: "lines and a single blank line survive",
			in:   "Data: 10/03/2024\r\nLocal:  portaria   \n\n\n\nsem alteracao",
			want: "Data: 10/03/2024\nLocal: portaria\n\nsem alteração.",
		},
		{
			name: "typo inside a longer word is left alone",
			in:   "janela aberta",
			want: "Janela aberta.",
		},
		{
			name: "only whitespace",
			in:   " \t\n\u200b ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Correct(tt.in); got != tt.want {
				t.Fatalf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocalCorrectIsIdempotent(t *testing.T) {
	c := NewLocalCorrector(DefaultTypoTable())
	inputs := []string{
		"ronda no patio ,sem alteracao",
		"hora:07:15 local:portao 2 ,veiculo parado",
		"vc viu?nao vi nada...",
		"Data: 10/03/2024\nHora: 23h\nLocal: estacionamneto\nOcorrencia: furto de bateria",
		"  ...  ",
		"1,5 km percorridos;tudo ok:",
		"NAO",
		"é o fim",
		"\u2028texto\u2029outra linha",
		"x",
	}
	for _, in := range inputs {
		once := c.Correct(in)
		if once == "" {
			t.Fatalf("Correct(%q) is empty", in)
		}
		if twice := c.Correct(once); twice != once {
			t.Fatalf("Correct not idempotent for %q:\n once  %q\n twice %q", in, once, twice)
		}
	}
}

func TestLocalCorrectNeverEmptyForVisibleText(t *testing.T) {
	c := NewLocalCorrector(nil)
	for _, in := range []string{".", "a", "?", "…", "  -  ", "07:15"} {
		if got := c.Correct(in); got == "" {
			t.Fatalf("Correct(%q) is empty", in)
		}
	}
}

func TestNewTypoTableRejectsUnstableEntries(t *testing.T) {
	tests := []struct {
		name  string
		typos []Typo
	}{
		{name: "empty to", typos: []Typo{{From: "abc", To: ""}}},
		{name: "punctuation in to", typos: []Typo{{From: "etc", To: "etc."}}},
		{name: "edge kind changes", typos: []Typo{{From: "x1", To: "xy"}}},
		{name: "correction rewritten", typos: []Typo{{From: "a", To: "b"}, {From: "b", To: "c"}}},
		{name: "extra whitespace", typos: []Typo{{From: "ab", To: "a  b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTypoTable(tt.typos); err == nil {
				t.Fatalf("NewTypoTable(%v) accepted an unstable table", tt.typos)
			}
		})
	}
}

func TestLoadTypoTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typos.yaml")
	data := "typos:\n  - from: rodna\n    to: ronda\n  - from: vigilante\n    to: vigilante\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadTypoTable(path)
	if err != nil {
		t.Fatalf("LoadTypoTable: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if got := table.Apply("Rodna das 22h"); got != "Ronda das 22h" {
		t.Fatalf("Apply = %q, want %q", got, "Ronda das 22h")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("typos: [from: x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTypoTable(bad); err == nil || !strings.Contains(err.Error(), "yaml") {
		t.Fatalf("LoadTypoTable(bad) error = %v, want yaml parse error", err)
	}
}

func TestEmailTemplateRender(t *testing.T) {
	tpl := EmailTemplate{Salutation: "Prezados,", Signature: "Att,\nPortaria"}
	want := "Prezados,\n\nRonda ok.\n\nAtt,\nPortaria"
	if got := tpl.Render("Ronda ok."); got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
	if got := (EmailTemplate{}).Render("Ronda ok."); got != "Ronda ok." {
		t.Fatalf("empty template Render = %q", got)
	}
}
