package extraction

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the extraction family a payload is routed to.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindDOCX
	KindXLSX
	KindImage
	KindMultiPageImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindDOCX:
		return "docx"
	case KindXLSX:
		return "xlsx"
	case KindImage:
		return "image"
	case KindMultiPageImage:
		return "multipage-image"
	default:
		return "unknown"
	}
}

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeTIFF = "image/tiff"
)

var kindByMime = map[string]Kind{
	MimePDF:      KindPDF,
	MimeDOCX:     KindDOCX,
	MimeXLSX:     KindXLSX,
	"image/png":  KindImage,
	"image/jpeg": KindImage,
	"image/jpg":  KindImage,
	"image/webp": KindImage,
	"image/gif":  KindImage,
	"image/bmp":  KindImage,
	MimeTIFF:     KindMultiPageImage,
}

var mimeByExt = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".xlsx": MimeXLSX,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  MimeTIFF,
	".tiff": MimeTIFF,
}

// NormalizeMime lower-cases a MIME type and strips parameters.
func NormalizeMime(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}

func isGeneric(m string) bool {
	return m == "" || m == "application/octet-stream" || m == "binary/octet-stream"
}

// ResolveType picks the content type of a payload: the declared MIME type when
// it is specific, else the filename extension, else magic-byte sniffing.
func ResolveType(declared, filename string, data []byte) (string, Kind) {
	declared = NormalizeMime(declared)
	if !isGeneric(declared) {
		return declared, kindByMime[declared]
	}

	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if m, ok := mimeByExt[ext]; ok {
			return m, kindByMime[m]
		}
	}

	if len(data) == 0 {
		return declared, KindUnknown
	}
	sniffed := NormalizeMime(mimetype.Detect(data).String())
	return sniffed, kindByMime[sniffed]
}

// Supported reports whether a MIME type has an extraction route.
func Supported(m string) bool {
	_, ok := kindByMime[NormalizeMime(m)]
	return ok
}
