package tesseract

import "strings"

// isoToTesseract maps two-letter codes to Tesseract traineddata names.
var isoToTesseract = map[string]string{
	"en": "eng",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"nl": "nld",
	"ja": "jpn",
	"ko": "kor",
	"ch": "chi_sim",
	"zh": "chi_sim",
	"ru": "rus",
}

// languageCodes converts language hints to Tesseract names, keeping order
// and dropping duplicates. Unknown codes pass through unchanged.
func languageCodes(langs []string) []string {
	seen := make(map[string]struct{}, len(langs))
	out := make([]string, 0, len(langs))
	for _, lang := range langs {
		code := strings.ToLower(strings.TrimSpace(lang))
		if code == "" {
			continue
		}
		if mapped, ok := isoToTesseract[code]; ok {
			code = mapped
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
