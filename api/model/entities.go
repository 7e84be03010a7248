package model

type Member struct {
	ID        int32  `json:"ID"`
	Type      string `json:"Type"`
	OutAddr   string `json:"OutAddr"`
	InnerAddr string `json:"InnerAddr"`
	Load      *int32 `json:"Load,omitempty"`
}

type Peer struct {
	ID    int32  `json:"ID"`
	Type  string `json:"Type"`
	Addr  string `json:"Addr"`
	State string `json:"State"`
}

type Upstream struct {
	State  string  `json:"State"`
	Master *Member `json:"Master,omitempty"`
}

type Error struct {
	Error string `json:"Error"`
}
