package plan

import (
	"path"
	"strings"
	"unicode"
)

// Ref identifies a tracked plan document.
type Ref struct {
	Id          string
	Filename    string
	DisplayName string
}

// RefFromFilename derives the plan id and display name from a document file
// name, e.g. "hydrogen_implementation.json" -> "hydrogen_implementation",
// "Hydrogen Implementation". Any leading path is dropped.
func RefFromFilename(filename string) Ref {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base := strings.TrimSuffix(filename, ".json")
	return Ref{
		Id:          strings.ToLower(base),
		Filename:    filename,
		DisplayName: displayName(base),
	}
}

func displayName(base string) string {
	runes := []rune(strings.ReplaceAll(base, "_", " "))
	startOfWord := true
	for i, r := range runes {
		isWordChar := unicode.IsLetter(r) || unicode.IsDigit(r)
		if isWordChar && startOfWord {
			runes[i] = unicode.ToUpper(r)
		}
		startOfWord = !isWordChar
	}
	return string(runes)
}
