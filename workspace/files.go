package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/codingjr/jrchat"
)

const (
	// MaxFileBytes caps the content read for a single referenced file.
	MaxFileBytes = 256 << 10
	// MaxTotalBytes caps the content attached to one prompt, keeping the
	// encoded prompt well inside a single transport frame.
	MaxTotalBytes = 1 << 20
)

// ReadFiles loads the referenced workspace-relative paths as prompt file
// context. Paths that escape root, are missing, or are not text are skipped
// and reported in the returned error list, as are files that would push the
// total past MaxTotalBytes.
func ReadFiles(root string, paths []string, detect func(string) string) (map[string]jrchat.FileContext, []error) {
	if len(paths) == 0 {
		return nil, nil
	}
	files := make(map[string]jrchat.FileContext, len(paths))
	var errs []error
	total := 0
	for _, p := range paths {
		fc, err := readFile(root, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if total+len(fc.Content) > MaxTotalBytes {
			errs = append(errs, fmt.Errorf("%s: skipped, attachments exceed %d KiB", p, MaxTotalBytes>>10))
			continue
		}
		total += len(fc.Content)
		if detect != nil {
			fc.Language = detect(p)
		}
		files[p] = fc
	}
	return files, errs
}

func readFile(root, rel string) (jrchat.FileContext, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return jrchat.FileContext{}, fmt.Errorf("%s: outside workspace", rel)
	}

	data, err := os.ReadFile(filepath.Join(root, clean))
	if err != nil {
		return jrchat.FileContext{}, err
	}
	if len(data) > MaxFileBytes {
		cut := MaxFileBytes
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		data = data[:cut]
	}
	if !utf8.Valid(data) {
		return jrchat.FileContext{}, fmt.Errorf("%s: not a text file", rel)
	}
	return jrchat.FileContext{Content: string(data)}, nil
}
