package cluster

import (
	"github.com/maxpoletaev/gamemesh/membership"
	"github.com/maxpoletaev/gamemesh/router"
)

// membershipHandler routes membership messages to the master session or the
// slave that owns the connection.
type membershipHandler struct{}

func membershipHandlers() router.Container {
	return router.NewContainer[membershipHandler](
		router.Map[membershipHandler, membership.ConnectRequest]("OnConnectRequest", (*membershipHandler).OnConnectRequest),
		router.Map[membershipHandler, membership.ConnectResponse]("OnConnectResponse", (*membershipHandler).OnConnectResponse),
		router.Map[membershipHandler, membership.ServerJoined]("OnServerJoined", (*membershipHandler).OnServerJoined),
		router.Map[membershipHandler, membership.ServerQuit]("OnServerQuit", (*membershipHandler).OnServerQuit),
		router.Map[membershipHandler, membership.LoadReport]("OnLoadReport", (*membershipHandler).OnLoadReport),
		router.Map[membershipHandler, membership.LeaveRequest]("OnLeaveRequest", (*membershipHandler).OnLeaveRequest),
	)
}

func (h *membershipHandler) OnConnectRequest(req *Request) {
	if s, ok := req.Conn.Attachment().(*session); ok {
		s.master.handleConnect(s, req.Message.(*membership.ConnectRequest))
	}
}

func (h *membershipHandler) OnLoadReport(req *Request) {
	if s, ok := req.Conn.Attachment().(*session); ok {
		s.master.handleLoad(s, req.Message.(*membership.LoadReport))
	}
}

func (h *membershipHandler) OnLeaveRequest(req *Request) {
	if s, ok := req.Conn.Attachment().(*session); ok {
		s.master.handleLeave(s)
	}
}

func (h *membershipHandler) OnConnectResponse(req *Request) {
	if s, ok := req.Conn.Attachment().(*Slave); ok {
		s.handleConnectResponse(req.Conn, req.Message.(*membership.ConnectResponse))
	}
}

func (h *membershipHandler) OnServerJoined(req *Request) {
	if s, ok := req.Conn.Attachment().(*Slave); ok {
		s.handleServerJoined(req.Message.(*membership.ServerJoined))
	}
}

func (h *membershipHandler) OnServerQuit(req *Request) {
	if s, ok := req.Conn.Attachment().(*Slave); ok {
		s.handleServerQuit(req.Message.(*membership.ServerQuit))
	}
}
