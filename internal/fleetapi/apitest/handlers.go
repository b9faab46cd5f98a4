package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetwave/fleetwave/internal/common/httpx"
	"github.com/fleetwave/fleetwave/internal/common/uuid"
)

const defaultPageLimit = 20
const maxPageLimit = 500

func (s *Service) getStatus(r *http.Request) (*httpx.Response, error) {
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: map[string]any{
			"status":  "ok",
			"service": "fleetwave-api",
			"time":    time.Now().UTC(),
		},
	}, nil
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (s *Service) login(r *http.Request) (*httpx.Response, error) {
	var req loginRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if req.Password != s.password {
		return nil, httpx.ErrUnAuthorized("invalid credentials")
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: map[string]any{
			"apiKey":    s.apiKey,
			"accountId": "acct-0001",
			"user":      req.User,
		},
	}, nil
}

func (s *Service) issueWorkspaceToken(r *http.Request) (*httpx.Response, error) {
	if bearerFrom(r) != s.apiKey {
		return nil, httpx.ErrUnAuthorized("workspace tokens require the account api key")
	}
	workspaceID := chi.URLParam(r, "workspaceID")
	ws, ok := s.workspaces.get(workspaceID)
	if !ok {
		return nil, httpx.ErrNotFound("unknown workspace " + workspaceID)
	}

	token, expiry, err := s.mintToken(workspaceID)
	if err != nil {
		return nil, httpx.ErrApplicationError("unable to mint token")
	}

	name, _ := ws["name"].(string)
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: map[string]any{
			"token":         token,
			"expiresAt":     expiry.UTC(),
			"workspaceName": name,
		},
	}, nil
}

func (s *Service) listCollection(st *store) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		q := r.URL.Query()
		limit := defaultPageLimit
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, httpx.ErrInvalidRequest("invalid limit")
			}
			limit = n
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		items, next, err := st.page(q.Get("cursor"), limit)
		if err != nil {
			return nil, err
		}
		pagination := map[string]any{"total": st.len()}
		if next != "" {
			pagination["nextCursor"] = next
		}
		return &httpx.Response{
			StatusCode: http.StatusOK,
			Response: map[string]any{
				"items":      items,
				"pagination": pagination,
			},
		}, nil
	}
}

func (s *Service) createIn(st *store) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		var item map[string]any
		if err := httpx.GetRequestData(r, &item); err != nil {
			return nil, err
		}
		id, _ := item["id"].(string)
		if id == "" {
			id, _ = item["name"].(string)
		}
		if id == "" {
			id = uuid.New().String()
		}
		if _, exists := st.get(id); exists {
			return nil, &httpx.Error{
				Code:        "already_exists",
				Description: st.name + " " + id + " already exists",
				StatusCode:  http.StatusConflict,
			}
		}
		st.put(id, item)
		return &httpx.Response{
			StatusCode: http.StatusCreated,
			Location:   r.URL.Path + "/" + id,
			Response:   item,
		}, nil
	}
}

func (s *Service) getFrom(st *store) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id := chi.URLParam(r, "id")
		item, ok := st.get(id)
		if !ok {
			return nil, httpx.ErrNotFound("unknown " + st.name + " " + id)
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: item}, nil
	}
}

func (s *Service) updateIn(st *store) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id := chi.URLParam(r, "id")
		if _, ok := st.get(id); !ok {
			return nil, httpx.ErrNotFound("unknown " + st.name + " " + id)
		}
		var item map[string]any
		if err := httpx.GetRequestData(r, &item); err != nil {
			return nil, err
		}
		st.put(id, item)
		return &httpx.Response{StatusCode: http.StatusOK, Response: item}, nil
	}
}

func (s *Service) deleteFrom(st *store) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id := chi.URLParam(r, "id")
		if !st.delete(id) {
			return nil, httpx.ErrNotFound("unknown " + st.name + " " + id)
		}
		return &httpx.Response{StatusCode: http.StatusNoContent}, nil
	}
}

type rebootRequest struct {
	Devices []string `json:"devices"`
}

// rebootDevices is a batch action. When some devices cannot be rebooted the
// response is 206 with a per-device result list.
func (s *Service) rebootDevices(r *http.Request) (*httpx.Response, error) {
	var req rebootRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if len(req.Devices) == 0 {
		return nil, httpx.ErrInvalidRequest("no devices specified")
	}

	results := make([]map[string]any, 0, len(req.Devices))
	allOK := true
	for _, id := range req.Devices {
		device, ok := s.devices.get(id)
		switch {
		case !ok:
			allOK = false
			results = append(results, map[string]any{
				"id":      id,
				"status":  "error",
				"code":    "not_found",
				"message": "unknown device " + id,
			})
		case device["status"] == "offline":
			allOK = false
			results = append(results, map[string]any{
				"id":      id,
				"status":  "error",
				"code":    "device_offline",
				"message": "device is offline",
			})
		default:
			results = append(results, map[string]any{
				"id":     id,
				"status": "ok",
			})
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusPartialContent
	}
	return &httpx.Response{
		StatusCode: status,
		Response:   map[string]any{"results": results},
	}, nil
}

func (s *Service) getSettings(r *http.Request) (*httpx.Response, error) {
	fleetName := chi.URLParam(r, "fleetName")
	if _, ok := s.fleets.get(fleetName); !ok {
		return nil, httpx.ErrNotFound("unknown fleet " + fleetName)
	}

	s.mu.Lock()
	settings := make(map[string]any, len(s.settings[fleetName]))
	for k, v := range s.settings[fleetName] {
		settings[k] = v
	}
	s.mu.Unlock()

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"fleet": fleetName, "settings": settings},
	}, nil
}

type settingRequest struct {
	Value json.RawMessage `json:"value"`
	Note  string          `json:"note,omitempty"`
}

// putSetting writes one fleet setting. An explicit JSON null value clears
// the setting to null; an absent value is rejected.
func (s *Service) putSetting(r *http.Request) (*httpx.Response, error) {
	fleetName := chi.URLParam(r, "fleetName")
	key := chi.URLParam(r, "key")
	if _, ok := s.fleets.get(fleetName); !ok {
		return nil, httpx.ErrNotFound("unknown fleet " + fleetName)
	}

	var req settingRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if len(req.Value) == 0 {
		return nil, httpx.ErrInvalidRequest("value is required")
	}
	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		return nil, httpx.ErrInvalidRequest("value is not valid JSON")
	}

	s.mu.Lock()
	if s.settings[fleetName] == nil {
		s.settings[fleetName] = make(map[string]any)
	}
	s.settings[fleetName][key] = value
	s.mu.Unlock()

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: map[string]any{
			"fleet": fleetName,
			"key":   key,
			"value": value,
			"note":  req.Note,
		},
	}, nil
}

type assignFirmwareRequest struct {
	Image   string `json:"image"`
	Version string `json:"version"`
}

func (s *Service) assignFirmware(r *http.Request) (*httpx.Response, error) {
	fleetName := chi.URLParam(r, "fleetName")
	fleet, ok := s.fleets.get(fleetName)
	if !ok {
		return nil, httpx.ErrNotFound("unknown fleet " + fleetName)
	}

	var req assignFirmwareRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if req.Image == "" || req.Version == "" {
		return nil, httpx.ErrInvalidRequest("image and version are required")
	}

	fleet["firmware"] = map[string]any{
		"image":   req.Image,
		"version": req.Version,
	}
	s.fleets.put(fleetName, fleet)
	return &httpx.Response{StatusCode: http.StatusOK, Response: fleet}, nil
}

// uploadFirmware accepts a raw image body. The image name arrives in the
// X-Firmware-Name header and the sniffed media type in Content-Type.
func (s *Service) uploadFirmware(r *http.Request) (*httpx.Response, error) {
	name := r.Header.Get("X-Firmware-Name")
	if name == "" {
		return nil, httpx.ErrInvalidRequest("missing X-Firmware-Name header")
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, httpx.ErrUnableToParseReqData()
	}
	if len(data) == 0 {
		return nil, httpx.ErrInvalidRequest("empty image")
	}

	image := map[string]any{
		"name":        name,
		"size":        len(data),
		"contentType": r.Header.Get("Content-Type"),
		"uploadedAt":  time.Now().UTC(),
	}
	s.firmware.put(name, image)
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/v1/firmware/images/" + name,
		Response:   image,
	}, nil
}

// Seeding helpers.

// AddWorkspace registers a workspace the token endpoint can issue tokens
// for.
func (s *Service) AddWorkspace(id, name string) {
	s.workspaces.put(id, map[string]any{"name": name})
}

// AddDevice registers a device. Fields missing from the given map get
// defaults; a nil map registers an online device.
func (s *Service) AddDevice(id string, fields map[string]any) {
	item := map[string]any{"status": "online"}
	for k, v := range fields {
		item[k] = v
	}
	s.devices.put(id, item)
}

// SeedDevices adds n online devices with sequential ids and returns the
// ids in order.
func (s *Service) SeedDevices(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("dev-%04d", i)
		s.AddDevice(id, map[string]any{"fleet": "default", "model": "fw-edge-100"})
		ids = append(ids, id)
	}
	return ids
}

// AddFleet registers a fleet.
func (s *Service) AddFleet(name string) {
	s.fleets.put(name, map[string]any{"name": name})
}

// AddUser registers a user.
func (s *Service) AddUser(id string, fields map[string]any) {
	item := map[string]any{"role": "member"}
	for k, v := range fields {
		item[k] = v
	}
	s.users.put(id, item)
}
