package rules

import "strings"

// Category names used by the built-in rules.
const (
	CategoryDocuments   = "documents"
	CategoryImages      = "images"
	CategoryVideos      = "videos"
	CategoryAudio       = "audio"
	CategoryArchives    = "archives"
	CategoryCode        = "code"
	CategoryScreenshots = "screenshots"
	CategoryDownloads   = "downloads"
	CategoryBackups     = "backups"
)

// Default returns the built-in ruleset.
func Default() Rules {
	return Rules{
		Extensions: []CategoryRule{
			{Category: CategoryDocuments, Values: []string{
				"pdf", "doc", "docx", "txt", "rtf", "odt", "xls", "xlsx", "ppt", "pptx", "csv",
			}},
			{Category: CategoryImages, Values: []string{
				"jpg", "jpeg", "png", "gif", "bmp", "tiff", "svg", "webp", "ico", "raw",
			}},
			{Category: CategoryVideos, Values: []string{
				"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm", "m4v", "3gp", "mpg", "mpeg",
			}},
			{Category: CategoryAudio, Values: []string{
				"mp3", "wav", "flac", "aac", "ogg", "wma", "m4a", "opus", "aiff",
			}},
			{Category: CategoryArchives, Values: []string{
				"zip", "rar", "7z", "tar", "gz", "bz2", "xz", "dmg", "iso",
			}},
			{Category: CategoryCode, Values: []string{
				"py", "js", "html", "css", "java", "cpp", "c", "h", "php", "rb", "go", "rs", "swift",
			}},
		},
		Patterns: []CategoryRule{
			{Category: CategoryScreenshots, Values: []string{"screenshot", "screen_shot", "capture"}},
			{Category: CategoryDownloads, Values: []string{"download", "temp", "tmp"}},
			{Category: CategoryBackups, Values: []string{"backup", "bak", "old", "copy"}},
		},
	}
}

// MIMERule maps a MIME type prefix to a category.
type MIMERule struct {
	Prefix   string
	Category string
}

// MIMETable is the ordered prefix table used by the content strategy.
// The first matching prefix wins.
var MIMETable = []MIMERule{
	{Prefix: "image/", Category: CategoryImages},
	{Prefix: "video/", Category: CategoryVideos},
	{Prefix: "audio/", Category: CategoryAudio},
	{Prefix: "text/", Category: CategoryDocuments},
	{Prefix: "application/pdf", Category: CategoryDocuments},
	{Prefix: "application/msword", Category: CategoryDocuments},
	{Prefix: "application/vnd.openxmlformats-officedocument", Category: CategoryDocuments},
	{Prefix: "application/zip", Category: CategoryArchives},
	{Prefix: "application/x-rar", Category: CategoryArchives},
	{Prefix: "application/x-7z", Category: CategoryArchives},
}

// MIMECategory returns the category of the first prefix matching mimeType.
func MIMECategory(mimeType string) (string, bool) {
	for _, r := range MIMETable {
		if strings.HasPrefix(mimeType, r.Prefix) {
			return r.Category, true
		}
	}
	return "", false
}
