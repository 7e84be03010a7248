package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/gamemesh/api/model"
	"github.com/maxpoletaev/gamemesh/membership"
)

type MembersHandler struct {
	master Master
}

func NewMembersHandler(master Master) *MembersHandler {
	return &MembersHandler{
		master: master,
	}
}

func (api *MembersHandler) Register(r chi.Router) {
	r.Get("/members", api.getMembers)
	r.Get("/members/{type}/pick", api.pickMember)
	r.Get("/members/{type}/{id}/load", api.getLoad)
}

func toMember(info membership.InnerServerInfo) model.Member {
	return model.Member{
		ID:        info.ID,
		Type:      info.Type.String(),
		OutAddr:   info.OutAddr(),
		InnerAddr: info.InnerAddr(),
	}
}

func (api *MembersHandler) getMembers(w http.ResponseWriter, r *http.Request) {
	infos := api.master.Members()
	members := make([]model.Member, len(infos))

	for i, info := range infos {
		members[i] = toMember(info)

		if load, ok := api.master.Load(info.Key()); ok {
			members[i].Load = &load
		}
	}

	render.JSON(w, r, model.GetMembersResponse{
		Members: members,
	})
}

func (api *MembersHandler) getLoad(w http.ResponseWriter, r *http.Request) {
	serverType, err := membership.ParseServerType(chi.URLParam(r, "type"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid server id")
		return
	}

	key := membership.Key{Type: serverType, ID: int32(id)}

	load, ok := api.master.Load(key)
	if !ok {
		renderError(w, r, http.StatusNotFound, "member not found")
		return
	}

	render.JSON(w, r, model.GetLoadResponse{
		ID:   key.ID,
		Type: key.Type.String(),
		Load: load,
	})
}

func (api *MembersHandler) pickMember(w http.ResponseWriter, r *http.Request) {
	serverType, err := membership.ParseServerType(chi.URLParam(r, "type"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	info, ok := api.master.Pick(serverType, r.URL.Query().Get("key"))
	if !ok {
		renderError(w, r, http.StatusNotFound, "no member available")
		return
	}

	render.JSON(w, r, model.PickResponse{
		Member: toMember(info),
	})
}
