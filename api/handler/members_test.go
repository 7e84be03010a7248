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
	"github.com/maxpoletaev/gamemesh/membership"
)

func fightServer(id int32) membership.InnerServerInfo {
	return membership.InnerServerInfo{
		ID:        id,
		Type:      membership.ServerTypeFight,
		OutIP:     "10.0.0.2",
		OutPort:   9000,
		InnerIP:   "10.0.0.2",
		InnerPort: 9100,
	}
}

func load(v int32) *int32 {
	return &v
}

func TestMembersHandler_getMembers(t *testing.T) {
	tests := map[string]struct {
		setupMaster func(m *mock.MockMaster)
		wantBody    model.GetMembersResponse
	}{
		"Empty": {
			setupMaster: func(m *mock.MockMaster) {
				m.EXPECT().Members().Return(nil)
			},
			wantBody: model.GetMembersResponse{
				Members: []model.Member{},
			},
		},
		"WithLoad": {
			setupMaster: func(m *mock.MockMaster) {
				m.EXPECT().Members().Return([]membership.InnerServerInfo{fightServer(2), fightServer(3)})
				m.EXPECT().Load(fightServer(2).Key()).Return(int32(5), true)
				m.EXPECT().Load(fightServer(3).Key()).Return(int32(0), false)
			},
			wantBody: model.GetMembersResponse{
				Members: []model.Member{
					{ID: 2, Type: "fight", OutAddr: "10.0.0.2:9000", InnerAddr: "10.0.0.2:9100", Load: load(5)},
					{ID: 3, Type: "fight", OutAddr: "10.0.0.2:9000", InnerAddr: "10.0.0.2:9100"},
				},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var (
				mux    = chi.NewMux()
				ctrl   = gomock.NewController(t)
				master = mock.NewMockMaster(ctrl)
			)

			tt.setupMaster(master)
			NewMembersHandler(master).Register(mux)

			req := httptest.NewRequest("GET", "/members", nil)
			recorder := httptest.NewRecorder()
			mux.ServeHTTP(recorder, req)

			require.Equal(t, http.StatusOK, recorder.Code)

			var resp model.GetMembersResponse
			err := json.NewDecoder(recorder.Body).Decode(&resp)
			require.NoError(t, err, "failed to unmarshal response: %v", err)

			require.Equal(t, tt.wantBody, resp)
		})
	}
}

func TestMembersHandler_getLoad(t *testing.T) {
	tests := map[string]struct {
		path        string
		setupMaster func(m *mock.MockMaster)
		wantStatus  int
		wantBody    string
	}{
		"Found": {
			path: "/members/fight/2/load",
			setupMaster: func(m *mock.MockMaster) {
				m.EXPECT().Load(membership.Key{Type: membership.ServerTypeFight, ID: 2}).Return(int32(7), true)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"ID":2,"Type":"fight","Load":7}`,
		},
		"NotFound": {
			path: "/members/game/9/load",
			setupMaster: func(m *mock.MockMaster) {
				m.EXPECT().Load(membership.Key{Type: membership.ServerTypeGame, ID: 9}).Return(int32(0), false)
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"Error":"member not found"}`,
		},
		"BadType": {
			path:        "/members/lobby/1/load",
			setupMaster: func(m *mock.MockMaster) {},
			wantStatus:  http.StatusBadRequest,
			wantBody:    `{"Error":"unknown server type: \"lobby\""}`,
		},
		"BadID": {
			path:        "/members/game/abc/load",
			setupMaster: func(m *mock.MockMaster) {},
			wantStatus:  http.StatusBadRequest,
			wantBody:    `{"Error":"invalid server id"}`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var (
				mux    = chi.NewMux()
				ctrl   = gomock.NewController(t)
				master = mock.NewMockMaster(ctrl)
			)

			tt.setupMaster(master)
			NewMembersHandler(master).Register(mux)

			req := httptest.NewRequest("GET", tt.path, nil)
			recorder := httptest.NewRecorder()
			mux.ServeHTTP(recorder, req)

			require.Equal(t, tt.wantStatus, recorder.Code)
			require.JSONEq(t, tt.wantBody, recorder.Body.String())
		})
	}
}

func TestMembersHandler_pickMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	master := mock.NewMockMaster(ctrl)
	mux := chi.NewMux()

	master.EXPECT().Pick(membership.ServerTypeFight, "room-1").Return(fightServer(3), true)
	master.EXPECT().Pick(membership.ServerTypeGame, "").Return(membership.InnerServerInfo{}, false)

	NewMembersHandler(master).Register(mux)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/members/fight/pick?key=room-1", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp model.PickResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Equal(t, int32(3), resp.Member.ID)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/members/game/pick", nil))
	require.Equal(t, http.StatusNotFound, recorder.Code)
}
