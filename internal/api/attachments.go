package api

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/parser"
	"github.com/jwintz/obsidianp-sub000/internal/storage"
)

// AssetHandler serves the attachment files (images, audio, video, PDF)
// that documents embed. Documents and collection files are not served
// raw; they are reachable through the graph endpoints only.
type AssetHandler struct {
	vault storage.Provider
}

// NewAssetHandler creates a handler reading from the vault.
func NewAssetHandler(vault storage.Provider) *AssetHandler {
	return &AssetHandler{vault: vault}
}

// ServeFile handles GET /api/assets/*.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := wildcard(r)
	if name == "" || !parser.IsAsset(name) {
		writeJSON(w, http.StatusBadRequest, errorBody("not an attachment"))
		return
	}
	if h.vault == nil {
		http.NotFound(w, r)
		return
	}
	data, err := h.vault.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, path.Base(name), time.Time{}, bytes.NewReader(data))
}
