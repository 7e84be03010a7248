package main

import (
	"strings"
	"time"

	"github.com/maxpoletaev/gamemesh/membership"
)

var opts struct {
	Server struct {
		ID      int32  `long:"id" env:"ID" required:"true" description:"server id, unique within its type"`
		Type    string `long:"type" env:"TYPE" required:"true" description:"server type: public, game or fight"`
		OutIP   string `long:"out-ip" env:"OUT_IP" required:"true" description:"address advertised to clients and other servers"`
		OutPort int    `long:"out-port" env:"OUT_PORT" default:"9000" description:"public port advertised to clients"`
		OutPass string `long:"out-pass" env:"OUT_PASS" description:"secret clients present to the public port"`
	} `group:"server" namespace:"server" env-namespace:"SERVER"`

	Inner struct {
		BindAddr string `long:"bind-addr" env:"BIND_ADDR" default:":9100" description:"address to accept other servers on"`
		Port     int    `long:"port" env:"PORT" default:"9100" description:"inner port advertised to other servers, 0 disables the listener"`
		Pass     string `long:"pass" env:"PASS" description:"secret other servers present to connect"`
	} `group:"inner" namespace:"inner" env-namespace:"INNER"`

	Master struct {
		IP         string `long:"ip" env:"IP" description:"master address, empty runs without an upstream"`
		InnerPort  int    `long:"inner-port" env:"INNER_PORT" default:"9100" description:"master inner port"`
		InnerPass  string `long:"inner-pass" env:"INNER_PASS" description:"master inner secret"`
		ServerPort int    `long:"server-port" env:"SERVER_PORT" description:"master public port"`
		ServerPass string `long:"server-pass" env:"SERVER_PASS" description:"master public secret"`
	} `group:"master" namespace:"master" env-namespace:"MASTER"`

	Cluster struct {
		Interest           string `long:"interest" env:"INTEREST" description:"comma-separated server types to link to directly"`
		HandshakeTimeout   int    `long:"handshake-timeout" env:"HANDSHAKE_TIMEOUT" default:"5000" description:"handshake timeout (ms)"`
		ReconnectDelay     int    `long:"reconnect-delay" env:"RECONNECT_DELAY" default:"500" description:"initial reconnect delay (ms)"`
		MaxReconnectDelay  int    `long:"max-reconnect-delay" env:"MAX_RECONNECT_DELAY" default:"30000" description:"max reconnect delay (ms)"`
		LoadReportInterval int    `long:"load-report-interval" env:"LOAD_REPORT_INTERVAL" default:"5000" description:"load report interval (ms)"`
	} `group:"cluster" namespace:"cluster" env-namespace:"CLUSTER"`

	RestAPI struct {
		Enabled  bool   `long:"enabled" env:"ENABLED" description:"enable REST API"`
		BindAddr string `long:"bind-addr" env:"BIND_ADDR" default:":8000" description:"address to bind REST API server"`
	} `group:"restapi" namespace:"restapi" env-namespace:"RESTAPI"`

	Verbose bool `long:"verbose" description:"verbose mode" env:"VERBOSE"`
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func parseList(s string) []string {
	sl := strings.Split(s, ",")
	res := make([]string, 0, len(sl))

	for _, item := range sl {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}

	return res
}

func parseServerTypes(s string) ([]membership.ServerType, error) {
	var types []membership.ServerType

	for _, name := range parseList(s) {
		t, err := membership.ParseServerType(name)
		if err != nil {
			return nil, err
		}

		types = append(types, t)
	}

	return types, nil
}
