package api

import (
	"net/http"
	"time"
)

type statusResponse struct {
	Started        bool         `json:"started"`
	DedupSize      int64        `json:"dedup_size"`
	Cursor         int64        `json:"cursor"`
	LastTick       *time.Time   `json:"last_tick,omitempty"`
	LastTickResult tickResponse `json:"last_tick_result"`
}

type tickResponse struct {
	Fetched  int    `json:"fetched"`
	Eligible int    `json:"eligible"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

type notifiedResponse struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// HandleStatus handles GET /api/status.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.deps.Stats()
	resp := statusResponse{
		Started:   st.Started,
		DedupSize: st.DedupSize,
		Cursor:    st.Cursor,
		LastTickResult: tickResponse{
			Fetched:  st.LastResult.Fetched,
			Eligible: st.LastResult.Eligible,
			Sent:     st.LastResult.Sent,
			Failed:   st.LastResult.Failed,
			Skipped:  st.LastResult.Skipped,
		},
	}
	if !st.LastTick.IsZero() {
		t := st.LastTick.UTC()
		resp.LastTick = &t
	}
	if st.LastResult.Err != nil {
		resp.LastTickResult.Error = st.LastResult.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleNotified handles GET /api/notified.
func (s *Server) HandleNotified(w http.ResponseWriter, r *http.Request) {
	ids := s.deps.NotifiedIDs()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, notifiedResponse{Count: len(ids), IDs: ids})
}
