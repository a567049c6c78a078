package frame

import (
	"bytes"
	"testing"
)

func TestParserBasicFraming(t *testing.T) {
	p := NewParser(nil)
	bodies := p.Feed([]byte("#DGV build-1\n#FNR OK\n"))
	want := []string{"DGV build-1", "FNR OK"}
	if len(bodies) != len(want) {
		t.Fatalf("got %d bodies, want %d: %v", len(bodies), len(want), bodies)
	}
	for i := range want {
		if bodies[i] != want[i] {
			t.Errorf("body %d = %q, want %q", i, bodies[i], want[i])
		}
	}
}

func TestParserIncrementalFeed(t *testing.T) {
	p := NewParser(nil)
	var got []string
	for _, chunk := range []string{"#FN", "R O", "K\n#D", "GV build-2\n"} {
		got = append(got, p.Feed([]byte(chunk))...)
	}
	want := []string{"FNR OK", "DGV build-2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("body %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParserIgnoresBootChatter(t *testing.T) {
	var dropped []string
	p := NewParser(func(reason string) { dropped = append(dropped, reason) })
	bodies := p.Feed([]byte("#CCCCCC#FNR MSG,1,initialized\n"))
	if len(bodies) != 1 || bodies[0] != "FNR MSG,1,initialized" {
		t.Errorf("bodies = %v, want single FNR MSG,1,initialized", bodies)
	}
	if len(dropped) != 0 {
		t.Errorf("boot chatter should not produce a drop warning, got %v", dropped)
	}
}

func TestParserStrayHashDiscardsBufferAndWarns(t *testing.T) {
	var dropped []string
	p := NewParser(func(reason string) { dropped = append(dropped, reason) })
	bodies := p.Feed([]byte("#partial#FNR OK\n"))
	if len(bodies) != 1 || bodies[0] != "FNR OK" {
		t.Errorf("bodies = %v, want single FNR OK", bodies)
	}
	if len(dropped) != 1 {
		t.Errorf("expected exactly one drop warning, got %d: %v", len(dropped), dropped)
	}
}

func TestParserEndToEndBringUpStream(t *testing.T) {
	p := NewParser(nil)
	stream := "#CCCCC\n#FNR MSG,1,initialized\n#DGV build-202201131742\n#DGR OK\n#FNR OK\n"
	bodies := p.Feed([]byte(stream))
	want := []string{
		"CCCCC",
		"FNR MSG,1,initialized",
		"DGV build-202201131742",
		"DGR OK",
		"FNR OK",
	}
	if len(bodies) != len(want) {
		t.Fatalf("got %d bodies %v, want %d %v", len(bodies), bodies, len(want), want)
	}
	for i := range want {
		if bodies[i] != want[i] {
			t.Errorf("body %d = %q, want %q", i, bodies[i], want[i])
		}
	}
}

func TestWriterEmitsExactlyOneFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBody("DGV"); err != nil {
		t.Fatalf("WriteBody failed: %v", err)
	}
	if got, want := buf.String(), "#DGV\n"; got != want {
		t.Errorf("written frame = %q, want %q", got, want)
	}
}
