package handler

//go:generate mockgen -destination=../mock/handler_mock.go -package=mock -source=facilities.go

import (
	"github.com/maxpoletaev/gamemesh/cluster"
	"github.com/maxpoletaev/gamemesh/membership"
)

// Master is the part of cluster.Master exposed over HTTP.
type Master interface {
	Members() []membership.InnerServerInfo
	Load(key membership.Key) (int32, bool)
	Pick(serverType membership.ServerType, routingKey string) (membership.InnerServerInfo, bool)
}

// Node is the part of cluster.Node exposed over HTTP.
type Node interface {
	Status() cluster.NodeStatus
}
