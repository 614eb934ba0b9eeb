package textutil

import "testing"

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
		nil_ bool
	}{
		{"  hello   world ", "hello world", false},
		{"line1\r\nline2\nline3", "line1 line2 line3", false},
		{"", "", true},
		{"   \n\t ", "", true},
	}
	for _, tc := range cases {
		got := NormalizeText(tc.in)
		if tc.nil_ {
			if got != nil {
				t.Fatalf("NormalizeText(%q) = %q, want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("NormalizeText(%q) = %v, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Ana Silva":      "anasilva",
		"ana  silva":     "anasilva",
		"José D'Ávila":   "josedavila",
		"João-Pedro Sá":  "joaopedrosa",
		"  O'Brien Jr. ": "obrienjr",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripDiacritics(t *testing.T) {
	if got := StripDiacritics("São Paulo"); got != "Sao Paulo" {
		t.Fatalf("expected Sao Paulo, got %q", got)
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"nd_bombas":      "Nd Bombas",
		"audacci":        "Audacci",
		"foo.bar-baz":    "Foo Bar Baz",
		"ALREADY UPPER":  "Already Upper",
		"  spaced   in ": "Spaced In",
	}
	for in, want := range cases {
		if got := TitleCase(in); got != want {
			t.Fatalf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Polivisor":         "polivisor",
		"ND Bombas & Cia.":  "nd_bombas_cia_",
		"Ágil Soluções":     "agil_solucoes",
		"grupo  unificado!": "grupo_unificado_",
		"":                  "empresa_desconhecida",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGuessCompanyNameFromEmail(t *testing.T) {
	cases := map[string]string{
		"jhonattas.costa@audacci.com.br": "Audacci",
		"ana@nd-bombas.com":              "Nd Bombas",
		"user@gmail.com":                 "",
		"user@hotmail.com.br":            "",
		"user@live.com":                  "",
		"x@empresa123.com":               "Empresa",
		"no-at-sign":                     "",
		"two@ats@x.com":                  "",
		"n@a1.com":                       "",
	}
	for in, want := range cases {
		if got := GuessCompanyNameFromEmail(in); got != want {
			t.Fatalf("GuessCompanyNameFromEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsPlaceholderName(t *testing.T) {
	placeholders := []string{"empresa_123", "empresa 9", "Empresa_77", "empresa-x"}
	for _, name := range placeholders {
		if !IsPlaceholderName(name) {
			t.Fatalf("expected %q to be a placeholder", name)
		}
	}
	real := []string{"Audacci", "Polivisor", "empresarial ltda", "Minha Empresa"}
	for _, name := range real {
		if IsPlaceholderName(name) {
			t.Fatalf("expected %q not to be a placeholder", name)
		}
	}
}
