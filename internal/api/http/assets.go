package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/ielts-listening/internal/storage"
)

const maxUpload = 64 << 20 // part recordings are a few MB

// MountAssetUploads mounts POST /{testID}: stores the multipart "file"
// under tests/<testID>/ and returns the key to put in a part's audio_path
// or image_path.
func MountAssetUploads(r chi.Router, bs storage.BlobStore, urls storage.Resolver) {
	r.Post("/{testID}", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		name := path.Base(strings.ReplaceAll(hdr.Filename, "\\", "/"))
		key, err := bs.Put("tests/"+chi.URLParam(r, "testID")+"/"+name, f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": urls.URL(key)})
	})
}

// MountAssets mounts GET /*: returns the blob at whatever follows /assets/.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			writeError(w, err)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
