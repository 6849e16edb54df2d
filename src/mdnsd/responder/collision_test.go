package responder

import (
	"testing"

	"github.com/quietwire/mdnsd/src/mdnsd/model"
)

func TestCompareSRVLongerDescriptorWins(t *testing.T) {
	// The original mDNS collision check compares raw descriptor length
	// before falling back to a byte compare: a longer claim always wins,
	// regardless of which side it came from.
	svc := &model.Service{Hostname: "a", Priority: 0, Weight: 0, Port: 80}

	result := compareSRV(svc, "local", 0, 0, 80, "a-very-long-hostname-indeed", "local")
	if result != theyWin {
		t.Errorf("expected theyWin, got %v", result)
	}
}

func TestCompareSRVIdenticalIsSame(t *testing.T) {
	svc := &model.Service{Hostname: "alpha", Priority: 0, Weight: 0, Port: 80}

	result := compareSRV(svc, "local", 0, 0, 80, "alpha", "local")
	if result != same {
		t.Errorf("expected same, got %v", result)
	}
}

func TestCompareSRVLexicographicOrdering(t *testing.T) {
	svc := &model.Service{Hostname: "aaaa", Priority: 0, Weight: 0, Port: 80}

	// Same length, but "bbbb" > "aaaa" byte-wise: the peer's claim wins.
	result := compareSRV(svc, "local", 0, 0, 80, "bbbb", "local")
	if result != theyWin {
		t.Errorf("expected theyWin, got %v", result)
	}
}

func TestCompareTXT(t *testing.T) {
	svc := &model.Service{
		Text: model.TXTPairs{{Key: "path", Value: []byte("/"), HasValue: true}},
	}

	ours := txtDescriptor(svc.Text)

	if result := compareTXT(svc, ours); result != same {
		t.Errorf("expected same, got %v", result)
	}

	longer := append(append([]byte{}, ours...), 0x05, 'e', 'x', 't', 'r', 'a')
	if result := compareTXT(svc, longer); result != theyWin {
		t.Errorf("expected theyWin for longer TXT, got %v", result)
	}
}
