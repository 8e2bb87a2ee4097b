package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"media-gallery/internal/ingest"
	"media-gallery/internal/logging"
)

// uploadField is the multipart field that carries files.
const uploadField = "files"

// errSpill marks failures writing a part to temporary storage. Those are
// server faults, unlike a malformed body.
var errSpill = errors.New("spill upload part")

// spillConfig controls how uploaded parts are buffered while a request is
// read. Parts are held in memory until the request has used Memory bytes,
// after which each further part goes to a temporary file in Dir.
type spillConfig struct {
	Memory int64
	Dir    string
}

func defaultSpillConfig() spillConfig {
	return spillConfig{Memory: 32 << 20}
}

// uploadParts holds the buffered "files" parts of one request, in the order
// they were sent.
type uploadParts struct {
	items []ingest.Item
	temps []string
}

// Close removes every temporary file.
func (u *uploadParts) Close() {
	for _, path := range u.temps {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Debug("Failed to remove upload temp file %s: %v", path, err)
		}
	}
	u.temps = nil
}

// readUploadParts reads the multipart body part by part. Every "files" part
// becomes one item at its position in the body; a part without a filename
// becomes an item with an empty Filename. Other fields are discarded. The
// caller must Close the result, also when an error is returned.
func readUploadParts(r *http.Request, config spillConfig) (*uploadParts, error) {
	parts := &uploadParts{}

	mr, err := r.MultipartReader()
	if err != nil {
		return parts, err
	}

	budget := config.Memory
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return parts, err
		}

		if part.FormName() != uploadField {
			_, err = io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return parts, err
			}
			continue
		}

		name := part.FileName()
		if name == "" {
			_, err = io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return parts, err
			}
			parts.items = append(parts.items, ingest.Item{})
			continue
		}

		item, used, err := parts.buffer(part, name, budget, config.Dir)
		part.Close()
		if err != nil {
			return parts, err
		}
		budget -= used
		parts.items = append(parts.items, item)
	}
}

// buffer keeps part in memory when it fits in budget and spills it to a
// temporary file otherwise. used is the memory consumed.
func (u *uploadParts) buffer(part *multipart.Part, name string, budget int64, dir string) (ingest.Item, int64, error) {
	var buf bytes.Buffer
	if budget > 0 {
		// One extra byte tells a part that fits exactly from one that does not.
		n, err := io.CopyN(&buf, part, budget+1)
		if err != nil && err != io.EOF {
			return ingest.Item{}, 0, err
		}
		if n <= budget {
			data := buf.Bytes()
			return ingest.Item{
				Filename: name,
				Open: func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(data)), nil
				},
			}, n, nil
		}
	}

	f, err := os.CreateTemp(dir, "media-gallery-upload-*")
	if err != nil {
		return ingest.Item{}, 0, fmt.Errorf("%w: %v", errSpill, err)
	}
	u.temps = append(u.temps, f.Name())

	if _, err := buf.WriteTo(f); err != nil {
		f.Close()
		return ingest.Item{}, 0, fmt.Errorf("%w: %v", errSpill, err)
	}
	if _, err := io.Copy(f, part); err != nil {
		f.Close()
		// A short or oversized body surfaces here too; only write failures
		// are ours.
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return ingest.Item{}, 0, fmt.Errorf("%w: %v", errSpill, err)
		}
		return ingest.Item{}, 0, err
	}
	if err := f.Close(); err != nil {
		return ingest.Item{}, 0, fmt.Errorf("%w: %v", errSpill, err)
	}

	path := f.Name()
	return ingest.Item{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, 0, nil
}
