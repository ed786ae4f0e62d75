package validation

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// formOverhead is the slack allowed on top of the file limit for multipart
// boundaries, part headers and small text fields.
const formOverhead = 1 << 20

type UploadedImage struct {
	Data        []byte
	ContentType string
	Filename    string
	Size        int64
}

// AcceptUpload reads the first file part named field from a multipart
// request and holds it in memory. Nothing touches the disk here.
func AcceptUpload(w http.ResponseWriter, r *http.Request, field string, maxSize int64) (*UploadedImage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, ErrMissingInput
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingInput
		}
		if err != nil {
			return nil, classifyReadError(err)
		}

		if part.FormName() != field || part.FileName() == "" {
			if _, err := io.Copy(io.Discard, part); err != nil {
				part.Close()
				return nil, classifyReadError(err)
			}
			part.Close()
			continue
		}

		img, err := readImagePart(part.Header.Get("Content-Type"), part, maxSize)
		part.Close()
		if err != nil {
			return nil, err
		}
		img.Filename = part.FileName()
		return img, nil
	}
}

func readImagePart(contentType string, r io.Reader, maxSize int64) (*UploadedImage, error) {
	if !IsImageType(contentType) {
		return nil, ErrUnsupportedMediaType
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, classifyReadError(err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrPayloadTooLarge
	}

	return &UploadedImage{
		Data:        data,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// IsImageType reports whether a declared MIME type is in the image/ family.
func IsImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}

func classifyReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrPayloadTooLarge
	}
	return fmt.Errorf("%w: %v", ErrInvalidForm, err)
}
