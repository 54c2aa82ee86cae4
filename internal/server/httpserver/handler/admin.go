package handler

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/infra/buildinfo"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

// handleStatus handles GET /admin/v1/status.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	topo := h.cfg.Topology

	neighbors := h.cfg.Neighbors.List()
	resp := StatusResponse{
		NodeID:    h.cfg.NodeID,
		Address:   topo.Me().String(),
		Levels:    topo.Levels(),
		GroupSize: topo.GroupSize(),
		Version:   buildinfo.String(),
		Neighbors: make([]NeighborResponse, 0, len(neighbors)),
	}
	for _, n := range neighbors {
		resp.Neighbors = append(resp.Neighbors, NeighborResponse{
			ID:      string(n.ID()),
			Address: n.Address().String(),
		})
	}

	services := h.cfg.Registry.Services()
	resp.Services = make([]ServiceSummary, 0, len(services))
	for _, svc := range services {
		count := 0
		for _, rec := range svc.Map().Export().Records {
			if rec.Participant {
				count++
			}
		}
		resp.Services = append(resp.Services, ServiceSummary{
			Service:      uint32(svc.ID()),
			Participant:  svc.IsParticipant(),
			Participants: count,
		})
	}
	sort.Slice(resp.Services, func(i, j int) bool {
		return resp.Services[i].Service < resp.Services[j].Service
	})

	h.writeJSON(w, http.StatusOK, resp)
}

// handleRoutes handles GET /admin/v1/routes.
func (h *Handler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	topo := h.cfg.Topology
	me := topo.Me()

	routes := make([]RouteResponse, 0)
	for lvl := 0; lvl < topo.Levels(); lvl++ {
		for pos := 0; pos < topo.GroupSize(); pos++ {
			if pos == me[lvl] {
				continue
			}
			best, ok := topo.BestRoute(lvl, pos)
			if !ok {
				continue
			}
			routes = append(routes, RouteResponse{
				Level:   lvl,
				Pos:     pos,
				Gateway: string(best.Gateway),
				Cost:    best.Cost,
			})
		}
	}
	h.writeJSON(w, http.StatusOK, routes)
}

// handleService handles GET /admin/v1/services/{id}.
func (h *Handler) handleService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "MESH-ARG-4000", "service id must be an unsigned integer", nil)
		return
	}

	svc, err := h.cfg.Registry.Get(domain.ServiceID(id))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, serviceResponse(svc))
}

func serviceResponse(svc *p2p.Service) ServiceResponse {
	st := svc.Map().Export()

	byLevel := make(map[int][]int)
	for _, rec := range st.Records {
		if rec.Participant {
			byLevel[rec.Level] = append(byLevel[rec.Level], rec.Pos)
		}
	}
	levels := make([]LevelParticipants, 0, len(byLevel))
	for lvl, pos := range byLevel {
		sort.Ints(pos)
		levels = append(levels, LevelParticipants{Level: lvl, Positions: pos})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	return ServiceResponse{
		Service:     uint32(svc.ID()),
		Me:          st.Me.String(),
		Participant: svc.IsParticipant(),
		Levels:      levels,
	}
}
