package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/gamemesh/api/mock"
	"github.com/maxpoletaev/gamemesh/api/model"
	"github.com/maxpoletaev/gamemesh/cluster"
	"github.com/maxpoletaev/gamemesh/membership"
)

func TestNodeHandler_getPeers(t *testing.T) {
	ctrl := gomock.NewController(t)
	node := mock.NewMockNode(ctrl)
	mux := chi.NewMux()

	node.EXPECT().Status().Return(cluster.NodeStatus{
		Self: membership.Key{Type: membership.ServerTypeGame, ID: 1},
		Peers: []cluster.PeerStatus{
			{Key: membership.Key{Type: membership.ServerTypeFight, ID: 2}, Addr: "10.0.0.2:9100", State: membership.StateJoined},
			{Key: membership.Key{Type: membership.ServerTypeFight, ID: 3}, Addr: "10.0.0.3:9100", State: membership.StateAuthenticating},
		},
	})

	NewNodeHandler(node).Register(mux)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/peers", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp model.GetPeersResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))

	require.Equal(t, model.GetPeersResponse{
		Peers: []model.Peer{
			{ID: 2, Type: "fight", Addr: "10.0.0.2:9100", State: "joined"},
			{ID: 3, Type: "fight", Addr: "10.0.0.3:9100", State: "authenticating"},
		},
	}, resp)
}

func TestNodeHandler_getStatus(t *testing.T) {
	tests := map[string]struct {
		status   cluster.NodeStatus
		wantBody string
	}{
		"Disconnected": {
			status: cluster.NodeStatus{
				Self:     membership.Key{Type: membership.ServerTypeGame, ID: 1},
				Upstream: membership.StateDisconnected,
			},
			wantBody: `{"ID":1,"Type":"game","Upstream":{"State":"disconnected"},"Peers":0}`,
		},
		"Joined": {
			status: cluster.NodeStatus{
				Self:     membership.Key{Type: membership.ServerTypeGame, ID: 1},
				Upstream: membership.StateJoined,
				Master: &membership.InnerServerInfo{
					ID: 100, Type: membership.ServerTypePublic,
					OutIP: "10.0.0.1", OutPort: 8000, InnerIP: "10.0.0.1", InnerPort: 8100,
				},
				Peers: []cluster.PeerStatus{{}},
			},
			wantBody: `{"ID":1,"Type":"game","Upstream":{"State":"joined","Master":` +
				`{"ID":100,"Type":"public","OutAddr":"10.0.0.1:8000","InnerAddr":"10.0.0.1:8100"}},"Peers":1}`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			node := mock.NewMockNode(ctrl)
			mux := chi.NewMux()

			node.EXPECT().Status().Return(tt.status)
			NewNodeHandler(node).Register(mux)

			recorder := httptest.NewRecorder()
			mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/status", nil))

			require.Equal(t, http.StatusOK, recorder.Code)
			require.JSONEq(t, tt.wantBody, recorder.Body.String())
		})
	}
}
