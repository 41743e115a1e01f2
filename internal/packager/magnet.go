package packager

import (
	"strconv"
	"strings"
)

// BuildMagnet implements §4.4's magnet construction:
// magnet:?xt=urn:btih:<hex>&dn=<name>, then &x.pe=<peer> per peer, then
// &tr=<tracker> per tracker, in that order.
func BuildMagnet(btih [20]byte, name string, peers []Peer, trackers []string) string {
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(Infohash(btih))
	b.WriteString("&dn=")
	b.WriteString(name)
	for _, p := range peers {
		b.WriteString("&x.pe=")
		b.WriteString(p.Host)
		b.WriteString(":")
		b.WriteString(strconv.Itoa(p.Port))
	}
	for _, tr := range trackers {
		b.WriteString("&tr=")
		b.WriteString(tr)
	}
	return b.String()
}

// MergeMagnets concatenates per-package magnet bodies, one per line, per
// §4.4's "Aggregate outputs".
func MergeMagnets(magnets []string) string {
	return strings.Join(magnets, "\n") + "\n"
}
