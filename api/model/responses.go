package model

type GetMembersResponse struct {
	Members []Member `json:"Members"`
}

type GetLoadResponse struct {
	ID   int32  `json:"ID"`
	Type string `json:"Type"`
	Load int32  `json:"Load"`
}

type PickResponse struct {
	Member Member `json:"Member"`
}

type GetPeersResponse struct {
	Peers []Peer `json:"Peers"`
}

type GetStatusResponse struct {
	ID       int32    `json:"ID"`
	Type     string   `json:"Type"`
	Upstream Upstream `json:"Upstream"`
	Peers    int      `json:"Peers"`
}
