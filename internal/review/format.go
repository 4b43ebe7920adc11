package review

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joescharf/revu/internal/models"
)

var (
	headingMarks = regexp.MustCompile(`(?m)^#+`)
	summaryLabel = regexp.MustCompile(`(?i)Summary.*?:`)
)

const (
	deepNote     = "Additional Insights: The AI performed a deeper review, analyzing structure, style, and maintainability for long-term improvement."
	standardNote = "Suggestion: Consider reviewing variable naming and structure for better readability."
)

// FormatFeedback prepares feedback for display: markdown heading and bold
// markers and the first "Summary...:" label are removed, and a depth note is
// appended.
func FormatFeedback(feedback string, depth models.Depth) string {
	text := headingMarks.ReplaceAllString(feedback, "")
	text = strings.ReplaceAll(text, "**", "")
	if loc := summaryLabel.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + text[loc[1]:]
	}
	text = strings.TrimSpace(text)

	note := standardNote
	if depth == models.DepthDeep {
		note = deepNote
	}
	return text + "\n\n" + note
}

var extLanguages = map[string]models.Language{
	".py":   models.LanguagePython,
	".js":   models.LanguageJavaScript,
	".jsx":  models.LanguageJavaScript,
	".ts":   models.LanguageJavaScript,
	".tsx":  models.LanguageJavaScript,
	".java": models.LanguageJava,
	".c":    models.LanguageC,
	".cpp":  models.LanguageCPP,
}

// LoadableExtensions lists the file extensions accepted for upload.
var LoadableExtensions = []string{".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".c", ".cpp", ".txt"}

// DetectLanguage infers the language from a file name. The bool is false
// for .txt and unknown extensions.
func DetectLanguage(path string) (models.Language, bool) {
	l, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// CheckLoadable rejects files whose extension is not accepted for upload.
func CheckLoadable(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range LoadableExtensions {
		if e == ext {
			return nil
		}
	}
	return fmt.Errorf("unsupported file type %q (want one of %s)", ext, strings.Join(LoadableExtensions, " "))
}
