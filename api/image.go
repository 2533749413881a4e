package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/amirhf/imageSearch/services/gallery-go/models"
)

var errNotAnImage = errors.New("Please upload an image file")

// ImageSearch accepts either a multipart upload in the "image" field or a JSON
// body carrying base64 (optionally as a data URL).
func (h *Handler) ImageSearch(w http.ResponseWriter, r *http.Request) {
	q, status, err := h.readImageQuery(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	c := h.session(w, r)
	snap, err := c.StartSearch(detach(r), q)
	h.respond(w, snap, err)
}

func (h *Handler) readImageQuery(w http.ResponseWriter, r *http.Request) (models.ImageQuery, int, error) {
	maxBytes := h.opts.MaxImageBytes
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var data []byte
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		file, _, err := r.FormFile("image")
		if err != nil {
			return models.ImageQuery{}, http.StatusBadRequest, errors.New("Missing image file")
		}
		defer file.Close()
		data, err = io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			return models.ImageQuery{}, http.StatusBadRequest, errors.New("Invalid image upload")
		}
	} else {
		// base64 grows the payload by a third
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes/3*4+1<<20)
		var req models.ImageSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return models.ImageQuery{}, http.StatusBadRequest, errors.New("Invalid request body")
		}
		q := models.NewImageQuery(req.Image)
		decoded, err := base64.StdEncoding.DecodeString(q.Image)
		if err != nil {
			return models.ImageQuery{}, http.StatusBadRequest, errors.New("Image must be base64 encoded")
		}
		data = decoded
	}

	if int64(len(data)) > maxBytes {
		return models.ImageQuery{}, http.StatusRequestEntityTooLarge, errors.New("Image is too large")
	}
	if len(data) == 0 || !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return models.ImageQuery{}, http.StatusUnsupportedMediaType, errNotAnImage
	}
	return models.ImageQuery{Image: base64.StdEncoding.EncodeToString(data)}, 0, nil
}
