package metric

import (
	"strings"
	"testing"
)

type staticSource []ServiceStat

func (s staticSource) ServiceStats() []ServiceStat { return s }

func TestCollector(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewCollector(staticSource{
		{ID: 3, Participants: 5, Participating: true},
		{ID: 9, Participants: 0},
	}))

	body := scrape(t, r)

	for _, want := range []string{
		`meshp2p_services 2`,
		`meshp2p_service_participants{service="3"} 5`,
		`meshp2p_service_participating{service="3"} 1`,
		`meshp2p_service_participating{service="9"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}
