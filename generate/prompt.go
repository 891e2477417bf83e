package generate

import (
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/codingjr/jrchat"
	defaults "github.com/codingjr/jrchat/default"
	"github.com/codingjr/jrchat/redact"
)

type languageTable struct {
	Extensions map[string]string `toml:"extensions"`
	Filenames  map[string]string `toml:"filenames"`
}

var (
	languagesOnce sync.Once
	languages     languageTable
)

func loadLanguages() languageTable {
	languagesOnce.Do(func() {
		if _, err := toml.Decode(defaults.LanguagesTOML, &languages); err != nil {
			slog.Warn("failed to parse embedded languages.toml", "error", err)
		}
	})
	return languages
}

// DetectLanguage returns the language name for a file path, or "" if unknown.
func DetectLanguage(filePath string) string {
	table := loadLanguages()
	base := path.Base(filePath)
	if lang, ok := table.Filenames[base]; ok {
		return lang
	}
	return table.Extensions[strings.ToLower(path.Ext(base))]
}

// BuildPrompt appends attached files to the user's text as fenced blocks,
// ordered by path. Shell scripts have assignment values masked.
func BuildPrompt(text string, files map[string]jrchat.FileContext) string {
	if len(files) == 0 {
		return text
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\nReferenced files:\n")
	for _, p := range paths {
		f := files[p]
		lang := f.Language
		if lang == "" {
			lang = DetectLanguage(p)
		}
		body := f.Content
		if lang == "shellscript" {
			body = redact.Shell(body)
		}

		sb.WriteString("\nFile: ")
		sb.WriteString(p)
		sb.WriteString("\n```")
		sb.WriteString(lang)
		sb.WriteString("\n")
		sb.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n")
	}
	return sb.String()
}
