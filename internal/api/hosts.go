package api

import (
	"encoding/json"
	"errors"
)

// HostList accepts either a single string or an array of strings on the
// wire and always normalizes to a slice internally, so callers can send
// {"hosts": "example.com"} or {"hosts": ["a.com", "b.com:8443"]}.
type HostList []string

var errInvalidHosts = errors.New("hosts must be a string or an array of strings")

func (h *HostList) UnmarshalJSON(data []byte) error {
	// A literal null carries no hosts; reject it rather than probe "".
	if string(data) == "null" {
		return errInvalidHosts
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*h = HostList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*h = HostList(many)
		return nil
	}
	return errInvalidHosts
}
