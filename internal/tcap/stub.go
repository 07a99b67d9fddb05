package tcap

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/segmentio/ksuid"
)

// WsStub is the recognised shape of P.ws.json: a small pointer record
// published for a remote viewer (§6.5) to locate and identify a live
// capture without reading the raw streams.
type WsStub struct {
	ID        string `json:"id"`
	Prefix    string `json:"prefix"`
	PID       int    `json:"pid"`
	ListenURL string `json:"listen_url,omitempty"`
}

// NewSessionID mints a time-ordered, globally-unique session id of the
// form "<ksuid>-<pid>": the ksuid component sorts lexically by
// creation time, and the pid suffix disambiguates two captures started
// within the same process-table generation on the same host.
func NewSessionID(startedAt time.Time, pid int) string {
	id, err := ksuid.NewRandomWithTime(startedAt)
	if err != nil {
		id = ksuid.Nil
	}
	return id.String() + "-" + strconv.Itoa(pid)
}

// WriteStub writes P.ws.json. A stub with an empty ListenURL is still
// written (the field is then omitted); `wtcap inspect` reads it back
// via ReadStub.
func WriteStub(prefix string, stub WsStub) error {
	data, err := json.Marshal(stub)
	if err != nil {
		return err
	}
	return os.WriteFile(prefix+".ws.json", data, 0644)
}

// ReadStub parses P.ws.json.
func ReadStub(prefix string) (WsStub, error) {
	var s WsStub
	data, err := os.ReadFile(prefix + ".ws.json")
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}
