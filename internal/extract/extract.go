// Package extract turns uploaded files into plain text ready for chunking.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"secondbrain/internal/ai"
	"secondbrain/internal/model"
	"secondbrain/internal/pkg/pdfextract"
)

var ErrUnsupportedType = errors.New("unsupported file type")

var audioMIME = map[string]string{
	"mp3":  "audio/mp3",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
}

var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true, "webp": true,
}

// ImageDescriber renders an image as searchable text.
type ImageDescriber interface {
	Describe(ctx context.Context, data []byte) (string, error)
}

type FileInput struct {
	Filename string
	Data     []byte
	// DeclaredType is the caller's content type, empty when unknown.
	DeclaredType model.ContentType
}

type Output struct {
	Text        string
	ContentType model.ContentType
	Metadata    model.DocumentMetadata
}

type Processor struct {
	transcriber ai.Transcriber
	images      ImageDescriber
}

// NewProcessor builds a processor. images may be nil, in which case image
// uploads are rejected as unsupported.
func NewProcessor(transcriber ai.Transcriber, images ImageDescriber) *Processor {
	return &Processor{transcriber: transcriber, images: images}
}

// Process picks an extractor from the declared type, the file extension and
// finally the sniffed MIME type. The returned content type is the declared
// one when given, otherwise the inferred one.
func (p *Processor) Process(ctx context.Context, in FileInput) (Output, error) {
	ext := Extension(in.Filename)
	detected := mimetype.Detect(in.Data)

	out := Output{
		Metadata: model.DocumentMetadata{
			FileSize: int64(len(in.Data)),
			MimeType: detected.String(),
		},
	}

	var err error
	switch {
	case in.DeclaredType == model.ContentTypeAudio || audioMIME[ext] != "" || strings.HasPrefix(detected.String(), "audio/"):
		out.ContentType = model.ContentTypeAudio
		out.Text, err = p.transcribe(ctx, in.Filename, ext, detected, in.Data)
	case ext == "pdf" || detected.Is("application/pdf"):
		out.ContentType = model.ContentTypeDocument
		var res pdfextract.Result
		res, err = pdfextract.Extract(in.Data)
		out.Text, out.Metadata.PageCount = res.Text, res.PageCount
	case ext == "md" || ext == "markdown":
		out.ContentType = model.ContentTypeDocument
		out.Text, err = utf8Text(in.Data, ext)
	case ext == "txt" || ext == "text":
		out.ContentType = model.ContentTypeText
		out.Text, err = utf8Text(in.Data, ext)
	case in.DeclaredType == model.ContentTypeImage || imageExts[ext] || strings.HasPrefix(detected.String(), "image/"):
		out.ContentType = model.ContentTypeImage
		out.Text, err = p.describe(ctx, ext, in.Data)
	default:
		out.ContentType = model.ContentTypeText
		out.Text, err = utf8Text(in.Data, ext)
	}
	if err != nil {
		return Output{}, err
	}

	if in.DeclaredType != "" {
		out.ContentType = in.DeclaredType
	}
	return out, nil
}

func (p *Processor) transcribe(ctx context.Context, filename, ext string, detected *mimetype.MIME, data []byte) (string, error) {
	if p.transcriber == nil {
		return "", fmt.Errorf("%w: audio transcription unavailable", ErrUnsupportedType)
	}
	mimeType := audioMIME[ext]
	if mimeType == "" {
		mimeType = "audio/mp3"
		if strings.HasPrefix(detected.String(), "audio/") {
			mimeType = detected.String()
		}
	}
	text, err := p.transcriber.Transcribe(ctx, filename, mimeType, data)
	if err != nil {
		return "", fmt.Errorf("transcribe audio failed: %w", err)
	}
	return text, nil
}

func (p *Processor) describe(ctx context.Context, ext string, data []byte) (string, error) {
	if p.images == nil {
		return "", fmt.Errorf("%w: %s (image description unavailable)", ErrUnsupportedType, displayExt(ext))
	}
	text, err := p.images.Describe(ctx, data)
	if err != nil {
		return "", fmt.Errorf("describe image failed: %w", err)
	}
	return text, nil
}

func utf8Text(data []byte, ext string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, displayExt(ext))
	}
	return string(data), nil
}

// Extension returns the lower-cased file extension without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func displayExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
