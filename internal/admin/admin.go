package admin

import (
	"bytes"
	"errors"
	"net"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/kpelzel/artnode/internal/artnet"
	"github.com/kpelzel/artnode/internal/metrics"
	"github.com/kpelzel/artnode/internal/settings"
	"github.com/kpelzel/artnode/internal/status"
	log "github.com/sirupsen/logrus"
)

const (
	CodeOK         = 200
	CodeBadRequest = 400
	CodeInternal   = 500
)

type SettingsStore interface {
	Current() settings.Settings
	Save(settings.Settings) error
	Reset() error
	Info() settings.Info
}

type StatusSource interface {
	Report() status.Report
}

type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type Response struct {
	Message   string `json:"message"`
	ErrorCode int    `json:"error_code"`
	Data      any    `json:"data,omitempty"`
}

// Handler serves the administrative JSON protocol: one request object per datagram, one
// response object back to the sender.
type Handler struct {
	store   SettingsStore
	status  StatusSource
	replier artnet.Replier

	actions map[string]func(Request) Response
}

func New(store SettingsStore, st StatusSource, replier artnet.Replier) *Handler {
	h := &Handler{
		store:   store,
		status:  st,
		replier: replier,
	}
	h.actions = map[string]func(Request) Response{
		"factory_reset":  h.factoryReset,
		"update_setting": h.updateSetting,
		"read_setting":   h.readSetting,
		"read_status":    h.readStatus,
		"read_info":      h.readInfo,
	}
	return h
}

// Dispatch handles one datagram and replies to the sender.
func (h *Handler) Dispatch(data []byte, sender net.Addr) {
	log.Debugf("admin request from %v: %s", sender, data)

	resp := h.Handle(data)
	out, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("failed to marshal admin response: %v", err)
		return
	}
	if _, err := h.replier.WriteTo(out, sender); err != nil {
		log.Errorf("failed to send admin response to %v: %v", sender, err)
	}
}

func (h *Handler) Handle(data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil || req.Action == "" {
		return h.count("invalid", Response{Message: "Invalid request", ErrorCode: CodeBadRequest})
	}

	action, ok := h.actions[req.Action]
	if !ok {
		return h.count("unknown", Response{Message: "Invalid action", ErrorCode: CodeBadRequest})
	}
	return h.count(req.Action, action(req))
}

func (h *Handler) count(action string, r Response) Response {
	metrics.AdminRequestsTotal.WithLabelValues(action, strconv.Itoa(r.ErrorCode)).Inc()
	return r
}

func (h *Handler) factoryReset(Request) Response {
	log.Info("factory reset requested")
	if err := h.store.Reset(); err != nil {
		log.Errorf("failed to factory reset: %v", err)
		return Response{Message: "Factory reset failed", ErrorCode: CodeInternal}
	}
	return Response{Message: "Factory reset done", ErrorCode: CodeOK}
}

func (h *Handler) updateSetting(req Request) Response {
	data := bytes.TrimSpace(req.Data)
	if len(data) == 0 || data[0] != '{' {
		return Response{Message: "Wrong data", ErrorCode: CodeBadRequest}
	}

	next := h.store.Current()
	if err := json.Unmarshal(data, &next); err != nil {
		return Response{Message: "Wrong data: " + err.Error(), ErrorCode: CodeBadRequest}
	}
	if err := h.store.Save(next); err != nil {
		if errors.Is(err, settings.ErrValidation) {
			return Response{Message: err.Error(), ErrorCode: CodeBadRequest}
		}
		log.Errorf("failed to save settings: %v", err)
		return Response{Message: "Update setting failed", ErrorCode: CodeInternal}
	}
	return Response{Message: "Update setting done", ErrorCode: CodeOK, Data: h.store.Current()}
}

func (h *Handler) readSetting(Request) Response {
	return Response{Message: "Read setting done", ErrorCode: CodeOK, Data: h.store.Current()}
}

func (h *Handler) readStatus(Request) Response {
	return Response{Message: "Read status done", ErrorCode: CodeOK, Data: h.status.Report()}
}

func (h *Handler) readInfo(Request) Response {
	return Response{Message: "Read info done", ErrorCode: CodeOK, Data: h.store.Info()}
}
