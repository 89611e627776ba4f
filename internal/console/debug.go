package console

import (
	"net/http"
	"time"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/buildinfo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/httpx"
)

// DebugJSON reports build info, effective settings and the live state of each
// workflow component.
func (s *Server) DebugJSON(w http.ResponseWriter, _ *http.Request) {
	snap := s.Zones.State().Snapshot()
	st := s.Surface.State()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"build":    buildinfo.Info(),
		"time":     time.Now().UTC().Format(time.RFC3339),
		"settings": s.settings,
		"zones": map[string]any{
			"count":  len(snap.Zones),
			"banner": snap.Banner,
			"phase":  s.Zones.Phase().String(),
		},
		"draw": map[string]any{
			"ready":    st.Ready,
			"fallback": st.Fallback,
			"vertices": len(st.Path),
		},
		"tracking": s.Poller.Status(),
	})
}
