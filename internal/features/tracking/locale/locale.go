// Package locale resolves a requested language into whatever token each
// carrier API actually accepts. Carriers disagree on shape (two-letter vs
// lang_REGION), casing and supported sets, and some fail hard on wrong
// casing, so resolution is per carrier.
package locale

import (
	"strings"
)

// dpdSupportedLocales is the set the DPD PLC API accepts. Casing is strict:
// lowercase language, uppercase region. Wrong casing triggers 429/500
// responses instead of a fallback.
var dpdSupportedLocales = map[string]bool{
	"en_US": true,
	"de_DE": true,
	"fr_FR": true,
	"es_ES": true,
	"it_IT": true,
	"nl_NL": true,
	"pl_PL": true,
	"cs_CZ": true,
}

// dpdLanguageLocales maps bare language codes to their default DPD locale.
var dpdLanguageLocales = map[string]string{
	"en": "en_US",
	"de": "de_DE",
	"fr": "fr_FR",
	"es": "es_ES",
	"it": "it_IT",
	"nl": "nl_NL",
	"pl": "pl_PL",
	"cs": "cs_CZ",
}

// correosLanguages is the allowlist shared by Correos and CTT.
var correosLanguages = map[string]bool{
	"EN": true,
	"ES": true,
	"FR": true,
}

// Resolve converts the requested language into the token the given carrier
// accepts. The second return value records the original input when the
// request had to be normalized away from what was asked (for diagnostics);
// it is empty when the input was representable as-is.
func Resolve(language, carrier string) (string, string) {
	switch strings.ToLower(carrier) {
	case "dpd":
		return ResolveDPD(language)
	case "gls":
		return upperTwoLetter(language, "EN")
	case "correos", "ctt":
		return allowlistedUpper(language)
	default:
		// dhl, ecoscooting and anything new take a lowercase 2-letter code.
		return lowerTwoLetter(language, "en")
	}
}

// ResolveDPD resolves a language or locale into a supported PLC locale.
// Inputs may be bare languages ("de"), locales with hyphen or underscore
// ("es-ES", "es_ES"), in any casing. Anything unsupported falls back to
// en_US with the original input recorded.
func ResolveDPD(language string) (string, string) {
	code := strings.TrimSpace(language)
	if code == "" {
		return "en_US", ""
	}

	canonical := strings.ReplaceAll(code, "-", "_")
	if len(canonical) == 5 && canonical[2] == '_' {
		lang := strings.ToLower(canonical[:2])
		region := strings.ToUpper(canonical[3:])
		loc := lang + "_" + region
		if dpdSupportedLocales[loc] {
			if loc == code {
				return loc, ""
			}
			// Same locale, only the casing or separator changed.
			return loc, code
		}
		if mapped, ok := dpdLanguageLocales[lang]; ok {
			return mapped, code
		}
		return "en_US", code
	}

	if mapped, ok := dpdLanguageLocales[strings.ToLower(canonical)]; ok {
		return mapped, ""
	}
	return "en_US", code
}

func lowerTwoLetter(language, fallback string) (string, string) {
	lang := twoLetter(language)
	if lang == "" {
		return fallback, ""
	}
	return strings.ToLower(lang), ""
}

func upperTwoLetter(language, fallback string) (string, string) {
	lang := twoLetter(language)
	if lang == "" {
		return fallback, ""
	}
	return strings.ToUpper(lang), ""
}

func allowlistedUpper(language string) (string, string) {
	lang := strings.ToUpper(twoLetter(language))
	if lang == "" {
		return "EN", ""
	}
	if correosLanguages[lang] {
		return lang, ""
	}
	return "EN", strings.TrimSpace(language)
}

// twoLetter extracts the language part of codes like "es", "es-ES" or
// "es_ES.UTF-8".
func twoLetter(language string) string {
	code := strings.TrimSpace(language)
	for _, sep := range []string{"-", "_", "."} {
		if idx := strings.Index(code, sep); idx >= 0 {
			code = code[:idx]
		}
	}
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}
