package status

import "github.com/kpelzel/artnode/internal/port"

// Report is the status document served to the admin protocol and the status endpoint.
type Report struct {
	Snapshot
	Presents uint64       `json:"Presents"`
	Ports    []port.Stats `json:"Ports"`
}

func NewReport(s *Stats, f *port.Fleet) Report {
	r := Report{
		Snapshot: s.Snapshot(),
		Presents: f.Presents(),
	}
	for _, p := range f.Ports() {
		r.Ports = append(r.Ports, p.Stats())
	}
	return r
}
