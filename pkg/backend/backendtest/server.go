package backendtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/websocket"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
)

// NewServer serves f over the HTTP routes used by backend.Client, plus the
// websocket event endpoint. The caller closes the server.
func NewServer(f *Fake) *httptest.Server {
	return httptest.NewServer(Handler(f))
}

// Handler returns the route table of NewServer.
func Handler(f *Fake) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /explorer/users/info", handle(func(r *http.Request) (*backend.UserInfo, error) {
		return f.GetUserInfo(r.Context())
	}))
	mux.HandleFunc("GET /explorer/groups/{id}/default-drive", handle(func(r *http.Request) (*backend.DefaultDrive, error) {
		return f.GetDefaultDrive(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /explorer/groups/{id}/drives", handle(func(r *http.Request) (*backend.Drives, error) {
		return f.GetDrivesChildren(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /explorer/folders/{id}/children", handle(func(r *http.Request) (*backend.Children, error) {
		q := r.URL.Query()
		return f.GetFolderChildren(r.Context(), q.Get("groupId"), q.Get("driveId"), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /explorer/drives/{id}/deleted", handle(func(r *http.Request) (*backend.Children, error) {
		return f.GetDeletedItems(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /explorer/folders/{id}", handle(func(r *http.Request) (*backend.Folder, error) {
		return f.GetFolder(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /explorer/items/{id}", handle(func(r *http.Request) (*backend.Item, error) {
		return f.GetItem(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /explorer/folders/{id}/path", handle(func(r *http.Request) (*backend.Path, error) {
		return f.GetPath(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /assets/{id}/permissions", handle(func(r *http.Request) (*backend.Permissions, error) {
		return f.GetPermissions(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("PUT /explorer/folders/{id}", handle(func(r *http.Request) (*backend.Folder, error) {
		var body backend.CreateFolderRequest
		if err := decode(r, &body); err != nil {
			return nil, err
		}
		return f.CreateFolder(r.Context(), r.PathValue("id"), body)
	}))
	mux.HandleFunc("POST /explorer/folders/{id}", handle(func(r *http.Request) (*struct{}, error) {
		var body struct{ Name string }
		if err := decode(r, &body); err != nil {
			return nil, err
		}
		return nil, f.RenameFolder(r.Context(), r.PathValue("id"), body.Name)
	}))
	mux.HandleFunc("POST /explorer/items/{id}", handle(func(r *http.Request) (*struct{}, error) {
		var body struct{ Name string }
		if err := decode(r, &body); err != nil {
			return nil, err
		}
		return nil, f.RenameItem(r.Context(), r.PathValue("id"), body.Name)
	}))
	mux.HandleFunc("DELETE /explorer/folders/{id}", handle(func(r *http.Request) (*struct{}, error) {
		return nil, f.TrashFolder(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("DELETE /explorer/items/{id}", handle(func(r *http.Request) (*struct{}, error) {
		return nil, f.TrashItem(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("DELETE /explorer/drives/{id}", handle(func(r *http.Request) (*struct{}, error) {
		return nil, f.DeleteDrive(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("DELETE /explorer/drives/{id}/purge", handle(func(r *http.Request) (*struct{}, error) {
		return nil, f.PurgeDrive(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("POST /explorer/move", handle(func(r *http.Request) (*backend.Children, error) {
		var body struct {
			TargetID            string `json:"targetId"`
			DestinationFolderID string `json:"destinationFolderId"`
		}
		if err := decode(r, &body); err != nil {
			return nil, err
		}
		return f.Move(r.Context(), body.TargetID, body.DestinationFolderID)
	}))
	mux.HandleFunc("POST /explorer/items/{id}/borrow", handle(func(r *http.Request) (*backend.Item, error) {
		var body struct {
			DestinationFolderID string `json:"destinationFolderId"`
		}
		if err := decode(r, &body); err != nil {
			return nil, err
		}
		return f.Borrow(r.Context(), r.PathValue("id"), body.DestinationFolderID)
	}))
	mux.HandleFunc("POST /admin/upload/{id}", handle(func(r *http.Request) (*struct{}, error) {
		return nil, f.UploadLocalAsset(r.Context(), r.PathValue("id"))
	}))
	mux.HandleFunc("GET /ws/events", func(w http.ResponseWriter, r *http.Request) {
		serveEvents(f, w, r)
	})
	return mux
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func serveEvents(f *Fake, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := f.SubscribeEvents()
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go func() {
		// a read error means the client went away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				stop()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}

// handle encodes the result of fn as JSON. A nil result yields an empty body.
func handle[R any](fn func(r *http.Request) (*R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := fn(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if result == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		http.Error(w, httpErr.Message, httpErr.StatusCode)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &backend.HTTPError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}
	return nil
}
