package membership

import (
	"fmt"

	"github.com/maxpoletaev/gamemesh/internal/binario"
	"github.com/maxpoletaev/gamemesh/message"
)

// Membership messages use the top of the id space. Application messages must
// stay below ControlIDBase.
const (
	ControlIDBase message.ID = 0xFF00

	ConnectRequestID  message.ID = ControlIDBase + 0x01
	ConnectResponseID message.ID = ControlIDBase + 0x02
	ServerJoinedID    message.ID = ControlIDBase + 0x03
	ServerQuitID      message.ID = ControlIDBase + 0x04
	LoadReportID      message.ID = ControlIDBase + 0x05
	LeaveRequestID    message.ID = ControlIDBase + 0x06
)

// IsControl reports whether id belongs to the membership protocol.
func IsControl(id message.ID) bool {
	return id >= ControlIDBase
}

// Messages returns constructors for every membership message, for use with
// message.Registry.
func Messages() []func() message.Message {
	return []func() message.Message{
		func() message.Message { return &ConnectRequest{} },
		func() message.Message { return &ConnectResponse{} },
		func() message.Message { return &ServerJoined{} },
		func() message.Message { return &ServerQuit{} },
		func() message.Message { return &LoadReport{} },
		func() message.Message { return &LeaveRequest{} },
	}
}

// ConnectRequest is the first message a slave sends after dialing a master.
type ConnectRequest struct {
	Secret string
	Info   InnerServerInfo
}

func (m *ConnectRequest) MessageID() message.ID { return ConnectRequestID }

func (m *ConnectRequest) Encode(w *binario.Writer) error {
	if err := w.WriteString(m.Secret); err != nil {
		return err
	}

	return m.Info.Encode(w)
}

func (m *ConnectRequest) Decode(r *binario.Reader) (err error) {
	if m.Secret, err = r.ReadString(); err != nil {
		return err
	}

	return m.Info.Decode(r)
}

// ConnectCode is the outcome of a connect handshake.
type ConnectCode uint8

const (
	ConnectOK ConnectCode = iota
	ConnectAuthFailed
	ConnectDuplicate
	ConnectRejected
)

func (c ConnectCode) String() string {
	switch c {
	case ConnectOK:
		return "ok"
	case ConnectAuthFailed:
		return "auth failed"
	case ConnectDuplicate:
		return "duplicate server"
	case ConnectRejected:
		return "rejected"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

// ConnectResponse completes the handshake. On success it also describes the
// master, so the slave can tag its connection.
type ConnectResponse struct {
	Code   ConnectCode
	Master InnerServerInfo
}

func (m *ConnectResponse) MessageID() message.ID { return ConnectResponseID }

func (m *ConnectResponse) Encode(w *binario.Writer) error {
	if err := w.WriteUint8(uint8(m.Code)); err != nil {
		return err
	}

	return m.Master.Encode(w)
}

func (m *ConnectResponse) Decode(r *binario.Reader) error {
	code, err := r.ReadUint8()
	if err != nil {
		return err
	}

	m.Code = ConnectCode(code)

	return m.Master.Decode(r)
}

// ServerJoined announces joined servers. A newly joined slave receives the
// whole registry in one message; existing slaves receive one record per join.
type ServerJoined struct {
	Infos []InnerServerInfo
}

func (m *ServerJoined) MessageID() message.ID { return ServerJoinedID }

func (m *ServerJoined) Encode(w *binario.Writer) error {
	return message.WriteList(w, m.Infos)
}

func (m *ServerJoined) Decode(r *binario.Reader) (err error) {
	m.Infos, err = message.ReadList[InnerServerInfo](r)
	return err
}

// ServerQuit announces that a server has left the master.
type ServerQuit struct {
	Type ServerType
	ID   int32
}

func (m *ServerQuit) Key() Key {
	return Key{Type: m.Type, ID: m.ID}
}

func (m *ServerQuit) MessageID() message.ID { return ServerQuitID }

func (m *ServerQuit) Encode(w *binario.Writer) error {
	if err := w.WriteUint8(uint8(m.Type)); err != nil {
		return err
	}

	return w.WriteInt32(m.ID)
}

func (m *ServerQuit) Decode(r *binario.Reader) (err error) {
	if m.Type, err = readServerType(r); err != nil {
		return err
	}

	m.ID, err = r.ReadInt32()

	return err
}

// LoadReport carries the current load of a slave to its master.
type LoadReport struct {
	Load int32
}

func (m *LoadReport) MessageID() message.ID { return LoadReportID }

func (m *LoadReport) Encode(w *binario.Writer) error {
	return w.WriteInt32(m.Load)
}

func (m *LoadReport) Decode(r *binario.Reader) (err error) {
	m.Load, err = r.ReadInt32()
	return err
}

// LeaveRequest tells the master that the slave is stopping on purpose.
type LeaveRequest struct{}

func (m *LeaveRequest) MessageID() message.ID          { return LeaveRequestID }
func (m *LeaveRequest) Encode(w *binario.Writer) error { return nil }
func (m *LeaveRequest) Decode(r *binario.Reader) error { return nil }
