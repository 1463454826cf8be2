package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"

	"chopfinder/storage"
)

type themeBody struct {
	Theme storage.Theme `json:"theme"`
}

func deviceStore(w http.ResponseWriter, r *http.Request, kv storage.KV) (storage.KV, bool) {
	device := r.Header.Get(DeviceHeader)
	if device == "" {
		writeError(w, http.StatusBadRequest, "Missing "+DeviceHeader+" header")
		return nil, false
	}
	return storage.Namespace(kv, device), true
}

// ThemeHandler reads the device's theme preference, defaulting to system.
func ThemeHandler(kv storage.KV, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := deviceStore(w, r, kv)
		if !ok {
			return
		}
		theme, err := storage.LoadTheme(r.Context(), store)
		if err != nil {
			logger.Warn("could not read theme preference", "err", err)
		}
		writeJSON(w, http.StatusOK, themeBody{Theme: theme})
	}
}

func SaveThemeHandler(kv storage.KV, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := deviceStore(w, r, kv)
		if !ok {
			return
		}
		var body struct {
			Theme string `json:"theme"`
		}
		if !decodeBody(w, r, &body, logger) {
			return
		}
		theme, err := storage.ParseTheme(body.Theme)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := storage.SaveTheme(r.Context(), store, theme); err != nil {
			logger.Error("could not save theme preference", "err", err)
			writeError(w, http.StatusInternalServerError, "Could not save preference")
			return
		}
		writeJSON(w, http.StatusOK, themeBody{Theme: theme})
	}
}
