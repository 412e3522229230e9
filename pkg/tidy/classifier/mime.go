package classifier

import (
	"mime"

	"github.com/h2non/filetype"
)

// guessMIME returns the MIME type registered for ext (no leading dot),
// without parameters. The filetype registry is consulted first, then the
// platform table. Empty when neither knows the extension.
func guessMIME(ext string) string {
	if ext == "" {
		return ""
	}

	if kind := filetype.GetType(ext); kind != filetype.Unknown && kind.MIME.Value != "" {
		return kind.MIME.Value
	}

	full := mime.TypeByExtension("." + ext)
	if full == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(full)
	if err != nil {
		return ""
	}
	return mediaType
}

// sniffMIME matches the leading bytes of the file against known
// signatures. Empty when the file is unreadable or unrecognized.
func sniffMIME(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
