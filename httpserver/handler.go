package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/provisioner"
	"github.com/ruteri/silo-provisioner/storage"
)

// StatsSource reports listener activity.
type StatsSource interface {
	Stats() provisioner.Stats
}

// RecordLookup resolves the lifecycle state of a key hash.
type RecordLookup interface {
	Lookup(ctx context.Context, hash interfaces.KeyHash) (storage.RecordState, *interfaces.AttestationRecord, error)
}

// Handler serves read-only provisioning state.
type Handler struct {
	stats   StatsSource
	records RecordLookup
	log     *slog.Logger
}

func NewHandler(stats StatsSource, records RecordLookup, log *slog.Logger) *Handler {
	return &Handler{stats: stats, records: records, log: log}
}

type recordResponse struct {
	Hash   string                        `json:"hash"`
	State  string                        `json:"state"`
	Record *interfaces.AttestationRecord `json:"record,omitempty"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Stats())
}

func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	hash, err := interfaces.NewKeyHashFromHex(chi.URLParam(r, "hash"))
	if err != nil {
		http.Error(w, "invalid key hash: "+err.Error(), http.StatusBadRequest)
		return
	}

	state, record, err := h.records.Lookup(r.Context(), hash)
	if err != nil {
		h.log.Error("Failed to look up record", slog.String("hash", hash.String()), "err", err)
		http.Error(w, "failed to look up record", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{Hash: hash.String(), State: state.String(), Record: record})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
