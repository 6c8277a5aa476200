package topology

import (
	"strings"
	"testing"
)

func TestParseGML_NodesAndEdges(t *testing.T) {
	src := `graph [
  node [ id "poi-A" type "poi" ip "10.0.0.1" geocode "US" bandwidthup 100.0 bandwidthdown 100.0 packetloss 0.0 ]
  node [ id "relay1" type "relay" ]
  edge [ source "poi-A" target "relay1" latency 10.0 jitter 1.0 packetloss 0.01 ]
]`
	g, err := parseGML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(g.nodes))
	}
	if len(g.edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(g.edges))
	}
	if g.nodes[0].attrs["id"] != "poi-A" {
		t.Errorf("first node id = %q, want poi-A", g.nodes[0].attrs["id"])
	}
	if g.edges[0].attrs["latency"] != "10.0" {
		t.Errorf("edge latency = %q, want 10.0", g.edges[0].attrs["latency"])
	}
}

func TestParseGML_MissingClosingBracket(t *testing.T) {
	src := `graph [ node [ id "a"`
	_, err := parseGML(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestParseGML_UnterminatedString(t *testing.T) {
	src := `graph [ node [ id "a ] ]`
	_, err := parseGML(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error for unterminated quoted string")
	}
}
