package membership

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/maxpoletaev/gamemesh/internal/binario"
)

// ServerType tags the role of a server in the mesh.
type ServerType uint8

const (
	ServerTypePublic ServerType = iota + 1
	ServerTypeGame
	ServerTypeFight
)

func (t ServerType) String() string {
	switch t {
	case ServerTypePublic:
		return "public"
	case ServerTypeGame:
		return "game"
	case ServerTypeFight:
		return "fight"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid returns true if t is one of the known server types.
func (t ServerType) Valid() bool {
	return t >= ServerTypePublic && t <= ServerTypeFight
}

// ParseServerType parses the name of a server type, as returned by String.
func ParseServerType(s string) (ServerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return ServerTypePublic, nil
	case "game":
		return ServerTypeGame, nil
	case "fight":
		return ServerTypeFight, nil
	default:
		return 0, fmt.Errorf("unknown server type: %q", s)
	}
}

// Key identifies a server uniquely within the mesh.
type Key struct {
	Type ServerType
	ID   int32
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Type, k.ID)
}

// ServerIdentity describes the local server: its public endpoint that clients
// connect to, and the cluster-internal endpoint that other servers dial.
type ServerIdentity struct {
	ID        int32
	Type      ServerType
	OutIP     string
	OutPort   int
	OutPass   string
	InnerPort int
	InnerPass string
}

func (s ServerIdentity) Key() Key {
	return Key{Type: s.Type, ID: s.ID}
}

// Info returns the part of the identity that is shared with other servers.
// The inner endpoint is assumed to live on the same address as the public one.
func (s ServerIdentity) Info() InnerServerInfo {
	return InnerServerInfo{
		ID:        s.ID,
		Type:      s.Type,
		OutIP:     s.OutIP,
		OutPort:   s.OutPort,
		OutPass:   s.OutPass,
		InnerIP:   s.OutIP,
		InnerPort: s.InnerPort,
		InnerPass: s.InnerPass,
	}
}

// Validate checks that the identity can be announced to a master.
func (s ServerIdentity) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("invalid server type: %d", s.Type)
	}

	for name, port := range map[string]int{"out port": s.OutPort, "inner port": s.InnerPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s out of range: %d", name, port)
		}
	}

	return nil
}

// InnerServerInfo is the record a master broadcasts about a joined server. It
// is treated as an immutable value: registries replace it as a whole.
type InnerServerInfo struct {
	ID        int32
	Type      ServerType
	OutIP     string
	OutPort   int
	OutPass   string
	InnerIP   string
	InnerPort int
	InnerPass string
}

func (i InnerServerInfo) Key() Key {
	return Key{Type: i.Type, ID: i.ID}
}

// Equal compares two records by identity only.
func (i InnerServerInfo) Equal(other InnerServerInfo) bool {
	return i.Key() == other.Key()
}

// InnerAddr is the host:port other servers dial to reach this one directly.
func (i InnerServerInfo) InnerAddr() string {
	return net.JoinHostPort(i.InnerIP, strconv.Itoa(i.InnerPort))
}

// OutAddr is the public host:port of the server.
func (i InnerServerInfo) OutAddr() string {
	return net.JoinHostPort(i.OutIP, strconv.Itoa(i.OutPort))
}

func (i *InnerServerInfo) Encode(w *binario.Writer) error {
	if err := w.WriteInt32(i.ID); err != nil {
		return err
	}

	if err := w.WriteUint8(uint8(i.Type)); err != nil {
		return err
	}

	if err := w.WriteString(i.OutIP); err != nil {
		return err
	}

	if err := w.WriteInt32(int32(i.OutPort)); err != nil {
		return err
	}

	if err := w.WriteString(i.OutPass); err != nil {
		return err
	}

	if err := w.WriteString(i.InnerIP); err != nil {
		return err
	}

	if err := w.WriteInt32(int32(i.InnerPort)); err != nil {
		return err
	}

	return w.WriteString(i.InnerPass)
}

func (i *InnerServerInfo) Decode(r *binario.Reader) (err error) {
	if i.ID, err = r.ReadInt32(); err != nil {
		return err
	}

	if i.Type, err = readServerType(r); err != nil {
		return err
	}

	if i.OutIP, err = r.ReadString(); err != nil {
		return err
	}

	if i.OutPort, err = readPort(r); err != nil {
		return err
	}

	if i.OutPass, err = r.ReadString(); err != nil {
		return err
	}

	if i.InnerIP, err = r.ReadString(); err != nil {
		return err
	}

	if i.InnerPort, err = readPort(r); err != nil {
		return err
	}

	i.InnerPass, err = r.ReadString()

	return err
}

func readServerType(r *binario.Reader) (ServerType, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}

	t := ServerType(v)
	if !t.Valid() {
		return 0, fmt.Errorf("invalid server type: %d", v)
	}

	return t, nil
}

func readPort(r *binario.Reader) (int, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}

	if v < 0 || v > 65535 {
		return 0, fmt.Errorf("port out of range: %d", v)
	}

	return int(v), nil
}
