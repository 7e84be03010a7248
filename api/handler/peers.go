package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/gamemesh/api/model"
)

type NodeHandler struct {
	node Node
}

func NewNodeHandler(node Node) *NodeHandler {
	return &NodeHandler{
		node: node,
	}
}

func (api *NodeHandler) Register(r chi.Router) {
	r.Get("/peers", api.getPeers)
	r.Get("/status", api.getStatus)
}

func (api *NodeHandler) getPeers(w http.ResponseWriter, r *http.Request) {
	status := api.node.Status()
	peers := make([]model.Peer, len(status.Peers))

	for i, p := range status.Peers {
		peers[i] = model.Peer{
			ID:    p.Key.ID,
			Type:  p.Key.Type.String(),
			Addr:  p.Addr,
			State: p.State.String(),
		}
	}

	render.JSON(w, r, model.GetPeersResponse{
		Peers: peers,
	})
}

func (api *NodeHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	status := api.node.Status()

	resp := model.GetStatusResponse{
		ID:   status.Self.ID,
		Type: status.Self.Type.String(),
		Upstream: model.Upstream{
			State: status.Upstream.String(),
		},
		Peers: len(status.Peers),
	}

	if status.Master != nil {
		master := toMember(*status.Master)
		resp.Upstream.Master = &master
	}

	render.JSON(w, r, resp)
}
