package topology

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// gmlNode and gmlEdge hold the raw key/value attributes read from the
// graph description file, before validation assigns them into typed
// vertex and edge records. The format is a minimal subset of GML (Graph
// Modeling Language) covering exactly the attribute set the topology
// needs:
//
//	graph [
//	  node [ id "poi-A" type "poi" ip "10.0.0.1" geocode "US"
//	         bandwidthup 100.0 bandwidthdown 100.0 packetloss 0.0 ]
//	  node [ id "relay1" type "relay" ]
//	  edge [ source "poi-A" target "relay1" latency 10.0 jitter 1.0 packetloss 0.01 ]
//	]
type gmlNode struct {
	attrs map[string]string
}

type gmlEdge struct {
	attrs map[string]string
}

type gmlGraph struct {
	nodes []gmlNode
	edges []gmlEdge
}

// parseGML tokenizes and parses the minimal GML subset from r. It is
// not a general GML implementation: only the constructs shown above are
// recognized, and unknown top-level keys and nested blocks are skipped.
func parseGML(r io.Reader) (*gmlGraph, error) {
	toks, err := tokenizeGML(r)
	if err != nil {
		return nil, err
	}
	p := &gmlParser{toks: toks}
	return p.parseGraph()
}

func tokenizeGML(r io.Reader) ([]string, error) {
	var toks []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	sc.Split(bufio.ScanRunes)

	var sb strings.Builder
	inQuote := false
	flush := func() {
		if sb.Len() > 0 {
			toks = append(toks, sb.String())
			sb.Reset()
		}
	}
	for sc.Scan() {
		ch := sc.Text()
		switch {
		case inQuote:
			if ch == `"` {
				toks = append(toks, `"`+sb.String()+`"`)
				sb.Reset()
				inQuote = false
			} else {
				sb.WriteString(ch)
			}
		case ch == `"`:
			flush()
			inQuote = true
		case ch == "[" || ch == "]":
			flush()
			toks = append(toks, ch)
		case ch == " " || ch == "\t" || ch == "\n" || ch == "\r":
			flush()
		default:
			sb.WriteString(ch)
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	return toks, nil
}

type gmlParser struct {
	toks []string
	pos  int
}

func (p *gmlParser) peek() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	return p.toks[p.pos], true
}

func (p *gmlParser) next() (string, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *gmlParser) expect(tok string) error {
	t, ok := p.next()
	if !ok || t != tok {
		return fmt.Errorf("expected %q, got %q (pos %d)", tok, t, p.pos)
	}
	return nil
}

func (p *gmlParser) parseGraph() (*gmlGraph, error) {
	if err := p.expect("graph"); err != nil {
		return nil, err
	}
	if err := p.expect("["); err != nil {
		return nil, err
	}
	g := &gmlGraph{}
	for {
		tok, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("unexpected end of input inside graph block")
		}
		if tok == "]" {
			p.pos++
			return g, nil
		}
		switch tok {
		case "node":
			p.pos++
			n, err := p.parseAttrBlock()
			if err != nil {
				return nil, err
			}
			g.nodes = append(g.nodes, gmlNode{attrs: n})
		case "edge":
			p.pos++
			e, err := p.parseAttrBlock()
			if err != nil {
				return nil, err
			}
			g.edges = append(g.edges, gmlEdge{attrs: e})
		default:
			// skip unknown top-level key/value or nested block
			if _, err := p.skipValueOrBlock(); err != nil {
				return nil, err
			}
		}
	}
}

func (p *gmlParser) parseAttrBlock() (map[string]string, error) {
	if err := p.expect("["); err != nil {
		return nil, err
	}
	attrs := make(map[string]string)
	for {
		tok, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("unexpected end of input inside attribute block")
		}
		if tok == "]" {
			return attrs, nil
		}
		key := tok
		val, err := p.skipValueOrBlock()
		if err != nil {
			return nil, err
		}
		attrs[key] = val
	}
}

// skipValueOrBlock consumes either a single scalar value or a nested
// [ ... ] block (discarded), returning the scalar's unquoted text.
func (p *gmlParser) skipValueOrBlock() (string, error) {
	tok, ok := p.next()
	if !ok {
		return "", fmt.Errorf("unexpected end of input, expected a value")
	}
	if tok == "[" {
		depth := 1
		for depth > 0 {
			t, ok := p.next()
			if !ok {
				return "", fmt.Errorf("unexpected end of input inside nested block")
			}
			if t == "[" {
				depth++
			} else if t == "]" {
				depth--
			}
		}
		return "", nil
	}
	if strings.HasPrefix(tok, `"`) {
		return strings.TrimSuffix(strings.TrimPrefix(tok, `"`), `"`), nil
	}
	return tok, nil
}

func parseFloatAttr(attrs map[string]string, key string) (float64, bool, error) {
	raw, ok := attrs[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, fmt.Errorf("attribute %s: %w", key, err)
	}
	return v, true, nil
}
