package uploadsvc

import (
	"path"
	"strings"
	"unicode"
)

const (
	defaultFilename = "upload.bin"
	maxFilenameLen  = 255
)

// sanitizeFilename оставляет только базовое имя без управляющих символов и ведущих точек.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	if name == "/" || name == "." {
		name = ""
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`:*?"<>|/`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")

	name = truncateUTF8(name, maxFilenameLen)

	if name == "" {
		return defaultFilename
	}

	return name
}

// truncateUTF8 обрезает строку до limit байт по границе руны.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}

	return s[:cut]
}
