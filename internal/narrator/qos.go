package narrator

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownApplication = errors.New("unknown application type")

// QoSClass is the static QoS assignment of an application type
type QoSClass struct {
	Application string `json:"application"`
	Class       string `json:"class"`
	DelayBound  string `json:"delay"`
	Guaranteed  bool   `json:"guaranteed"`
}

var qosTable = []QoSClass{
	{Application: "Voice over IP (VoIP)", Class: "Conversational", DelayBound: "<150ms", Guaranteed: true},
	{Application: "Video Conferencing", Class: "Conversational", DelayBound: "<150ms", Guaranteed: true},
	{Application: "Video Streaming", Class: "Streaming", DelayBound: "<300ms", Guaranteed: true},
	{Application: "Online Gaming", Class: "Interactive", DelayBound: "<100ms", Guaranteed: false},
	{Application: "Web Browsing", Class: "Interactive", DelayBound: "<1s", Guaranteed: false},
	{Application: "Email / File Transfer", Class: "Background", DelayBound: "Best effort", Guaranteed: false},
}

// Applications returns the selectable application types in display order
func Applications() []string {
	out := make([]string, len(qosTable))
	for i, q := range qosTable {
		out[i] = q.Application
	}
	return out
}

// QoSTable returns a copy of the full mapping
func QoSTable() []QoSClass {
	out := make([]QoSClass, len(qosTable))
	copy(out, qosTable)
	return out
}

// LookupQoS maps an application type (case-insensitive) to its class.
func LookupQoS(app string) (QoSClass, error) {
	app = strings.TrimSpace(app)
	for _, q := range qosTable {
		if strings.EqualFold(q.Application, app) {
			return q, nil
		}
	}
	return QoSClass{}, fmt.Errorf("%w: %q", ErrUnknownApplication, app)
}

// Line renders the single narration line for the mapping
func (q QoSClass) Line() string {
	gbr := "No"
	if q.Guaranteed {
		gbr = "Yes"
	}
	return fmt.Sprintf("%s -> QoS Class: %s | Delay: %s | Guaranteed Bitrate: %s", q.Application, q.Class, q.DelayBound, gbr)
}
