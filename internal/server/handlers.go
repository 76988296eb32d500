package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/mesh-intelligence/grocery/internal/logging"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

// maxBodyBytes bounds request bodies; items are at most 100 characters.
const maxBodyBytes = 64 << 10

var errInvalidBody = errors.New("invalid request body")

const msgInvalidBody = "Invalid request body"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": types.MsgAPIRoot})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items, "")
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item, "")
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeItemBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if body.Text == nil {
		writeError(w, http.StatusBadRequest, types.MsgTextRequired)
		return
	}

	item, err := s.store.Create(r.Context(), *body.Text)
	if err != nil {
		if errors.Is(err, types.ErrInvalidText) {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		s.storeError(w, r, err)
		return
	}
	s.logger.Debug("item created", logging.String(logging.FieldItemID, item.ID))
	writeData(w, http.StatusCreated, item, "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeItemBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	item, err := s.store.Update(r.Context(), r.PathValue("id"), types.ItemUpdate{
		Text:      body.Text,
		Completed: body.Completed,
	})
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item, "")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.logger.Debug("item deleted", logging.String(logging.FieldItemID, item.ID))
	writeData(w, http.StatusOK, item, types.MsgItemDeleted)
}

// storeError maps a store error to its status code and envelope.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInvalidID):
		writeError(w, http.StatusNotFound, types.MsgItemNotFound)
	case errors.Is(err, types.ErrInvalidText):
		writeError(w, http.StatusInternalServerError, validationMessage(err))
	default:
		s.logger.Error("store operation failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "store_error"))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrTextRequired):
		return types.MsgTextRequired
	case errors.Is(err, types.ErrTextTooLong):
		return fmt.Sprintf("Item name cannot exceed %d characters", types.MaxTextLength)
	default:
		return err.Error()
	}
}

// itemBody is the accepted request payload for create and update.
type itemBody struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// decodeItemBody reads a JSON or form-urlencoded body. An empty body decodes
// to the zero itemBody.
func decodeItemBody(w http.ResponseWriter, r *http.Request) (itemBody, error) {
	var body itemBody
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return body, errInvalidBody
		}
		if r.PostForm.Has("text") {
			text := r.PostForm.Get("text")
			body.Text = &text
		}
		if r.PostForm.Has("completed") {
			completed, err := strconv.ParseBool(r.PostForm.Get("completed"))
			if err != nil {
				return body, errInvalidBody
			}
			body.Completed = &completed
		}
		return body, nil
	}

	if r.ContentLength == 0 {
		return body, nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return itemBody{}, nil
		}
		return itemBody{}, errInvalidBody
	}
	return body, nil
}
