// Package filehandler turns uploaded files into the raster images the editor
// works on.
//
// Two upload kinds are accepted:
//   - Documents (PDF): rasterized page by page through a Rasterizer (go-fitz)
//   - Images (JPEG, PNG, WebP, GIF): normalized with imaging (orientation,
//     downscale, white background, JPEG re-encode)
//
// Everything else is reported as unsupported and skipped by the caller.
package filehandler

import (
	"mime"
	"path/filepath"
	"strings"
)

// MIMETypePDF is the only accepted document media type.
const MIMETypePDF = "application/pdf"

// MIMETypeJPEG is the media type every extracted image is re-encoded to.
const MIMETypeJPEG = "image/jpeg"

// Kind classifies an upload for the extraction pipeline.
type Kind int

const (
	// KindUnsupported is anything that is neither a document nor an image.
	KindUnsupported Kind = iota
	// KindDocument is a PDF whose pages are rasterized.
	KindDocument
	// KindImage is a standalone raster image.
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindImage:
		return "image"
	default:
		return "unsupported"
	}
}

// SupportedImageExtensions maps accepted image extensions to their media type.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// SupportedDocumentExtensions maps accepted document extensions to their media type.
var SupportedDocumentExtensions = map[string]string{
	".pdf": MIMETypePDF,
}

// IsImage returns true if the extension is a supported image format.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsDocument returns true if the extension is a supported document format.
func IsDocument(ext string) bool {
	_, ok := SupportedDocumentExtensions[strings.ToLower(ext)]
	return ok
}

// DetectMIMEType resolves the media type of an upload. The declared type
// (multipart header, browser File.type) wins unless it is empty or the
// generic octet-stream, in which case the file extension decides.
func DetectMIMEType(name, declared string) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return strings.ToLower(mediaType)
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := SupportedDocumentExtensions[ext]; ok {
		return m
	}
	if m, ok := SupportedImageExtensions[ext]; ok {
		return m
	}
	return ""
}

// Classify reports whether a file with the given name and media type is a
// document, an image, or unsupported.
func Classify(name, mimeType string) Kind {
	switch mediaType := DetectMIMEType(name, mimeType); {
	case mediaType == MIMETypePDF:
		return KindDocument
	case isSupportedImageType(mediaType):
		return KindImage
	default:
		return KindUnsupported
	}
}

func isSupportedImageType(mediaType string) bool {
	for _, m := range SupportedImageExtensions {
		if m == mediaType {
			return true
		}
	}
	return false
}

// ExtensionForMIME returns the file extension (without dot) used when
// writing an image of the given media type. "image/jpeg" maps to "jpg".
func ExtensionForMIME(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = mimeType
	}
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "":
		return "png"
	}
	if i := strings.LastIndex(mediaType, "/"); i >= 0 && i < len(mediaType)-1 {
		return mediaType[i+1:]
	}
	return mediaType
}
