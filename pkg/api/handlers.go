package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/export"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/peers"
	"lxmf-chat/pkg/session"
)

const maxUpload = 32 << 20

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

func (s *Server) peers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	list := sess.Peers()
	if q := r.URL.Query().Get("q"); q != "" {
		list = peers.Search(list, q)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tab":     sess.Tab(),
		"summary": sess.Summary(),
		"peers":   list,
	})
}

func (s *Server) thread(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	p, ok := sess.Selected()
	if !ok {
		writeErr(w, session.ErrNoPeerSelected)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"peer":     p,
		"messages": sess.Thread(),
	})
}

func (s *Server) telemetryPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).TelemetryPeers())
}

func (s *Server) telemetry(w http.ResponseWriter, r *http.Request) {
	peer := chi.URLParam(r, "peer")
	rec, ok := sessionFrom(r).Telemetry(peer)
	if !ok {
		writeError(w, http.StatusNotFound, "no telemetry for "+model.NormalizeHash(peer))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) packets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Packets(chi.URLParam(r, "peer"), queryInt(r, "limit", 0)))
}

func (s *Server) transfers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     sess.Stats(),
		"transfers": sess.Transfers(),
	})
}

func (s *Server) unread(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"unread": sessionFrom(r).Unread()})
}

func (s *Server) raw(w http.ResponseWriter, r *http.Request) {
	if s.deps.Inspector == nil {
		writeError(w, http.StatusNotImplemented, "raw inspection unavailable")
		return
	}
	p, err := s.deps.Inspector.Raw(r.Context(), chi.URLParam(r, "peer"), chi.URLParam(r, "file"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	if s.deps.Inspector == nil {
		writeError(w, http.StatusNotImplemented, "telemetry history unavailable")
		return
	}
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "24h"
	}
	samples, err := s.deps.Inspector.TelemetryHistory(r.Context(), chi.URLParam(r, "peer"), rng)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeJSON(w, http.StatusOK, []model.AuditEntry{})
		return
	}
	entries, err := s.deps.Journal.ListAudit(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) listIdentities(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Sessions.ListIdentities(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

type identityRequest struct {
	Path string `json:"path"`
}

func (s *Server) selectIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}
	sess, err := s.deps.Sessions.SelectIdentity(r.Context(), req.Path)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sess.ID(), "identity": sess.Identity()})
}

type peerRequest struct {
	Peer  string `json:"peer"`
	Group string `json:"group,omitempty"`
}

func (s *Server) selectPeer(w http.ResponseWriter, r *http.Request) {
	var req peerRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := sessionFrom(r).SelectPeer(req.Peer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type tabRequest struct {
	Tab string `json:"tab"`
}

func (s *Server) setTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if !decode(w, r, &req) {
		return
	}
	tab, err := model.ParseTab(req.Tab)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetTab(r.Context(), tab); err != nil && !errors.Is(err, session.ErrStale) {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tab": tab, "summary": sess.Summary()})
}

type sortRequest struct {
	Mode  string `json:"mode"`
	Order string `json:"order,omitempty"`
}

func (s *Server) setSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if !decode(w, r, &req) {
		return
	}
	mode, order, err := peers.ParseSort(req.Mode, req.Order)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := sessionFrom(r)
	sess.SetSort(mode, order)
	writeJSON(w, http.StatusOK, map[string]interface{}{"mode": mode, "order": order, "peers": sess.Peers()})
}

type sendRequest struct {
	Content string `json:"content"`
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decode(w, r, &req) {
		return
	}
	if err := sessionFrom(r).Send(r.Context(), req.Content); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) sendFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer f.Close()
	up := backend.FileUpload{
		Destination: r.FormValue("destination"),
		FileName:    hdr.Filename,
		Body:        f,
		Description: r.FormValue("description"),
		AudioCodec:  r.FormValue("audio_codec"),
	}
	if v := r.FormValue("audio_mode"); v != "" {
		mode, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "audio_mode must be an integer")
			return
		}
		up.AudioMode = &mode
	}
	if err := sessionFrom(r).SendFile(r.Context(), up); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type retryRequest struct {
	Timestamp float64 `json:"timestamp"`
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if !decode(w, r, &req) {
		return
	}
	if err := sessionFrom(r).Retry(r.Context(), req.Timestamp); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// sync starts a propagation sync in the background. Progress is streamed
// as propagation.status events.
func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	done, err := sess.StartSync(s.deps.BackgroundCtx)
	if err != nil {
		writeErr(w, err)
		return
	}
	go func() {
		res := <-done
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("session", sess.ID()).Str("state", string(res.Status.State)).Msg("propagation sync ended with error")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) favorite(w http.ResponseWriter, r *http.Request) {
	var req peerRequest
	if !decode(w, r, &req) {
		return
	}
	fav, err := sessionFrom(r).ToggleFavorite(r.Context(), req.Peer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
}

func (s *Server) group(w http.ResponseWriter, r *http.Request) {
	var req peerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Group == "" {
		writeError(w, http.StatusBadRequest, "group required")
		return
	}
	groups, err := sessionFrom(r).ToggleGroup(r.Context(), req.Peer, req.Group)
	if err != nil {
		writeErr(w, err)
		return
	}
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"groups": groups})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := sessionFrom(r).Config(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) saveConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.ServerConfig
	if !decode(w, r, &cfg) {
		return
	}
	saved, err := sessionFrom(r).SaveConfig(r.Context(), cfg)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	doc, err := sessionFrom(r).Export(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if s.deps.Exporter == nil {
		data, err := doc.Encode()
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName()+`"`)
		_, _ = w.Write(data)
		return
	}
	loc, err := export.Save(r.Context(), s.deps.Exporter, doc)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"location": loc, "messages": len(doc.Messages)})
}
