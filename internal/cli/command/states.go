package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshp2p-go/internal/cli/output"
)

// LevelParticipants lists the participant positions known at one level.
type LevelParticipants struct {
	Level     int   `json:"level" yaml:"level"`
	Positions []int `json:"positions" yaml:"positions"`
}

// ServiceStateView is one service map as shown by states.
type ServiceStateView struct {
	Service      uint32              `json:"service" yaml:"service"`
	Me           string              `json:"me" yaml:"me"`
	Participants int                 `json:"participants" yaml:"participants"`
	Levels       []LevelParticipants `json:"levels" yaml:"levels"`
}

// StatesView is the output of states.
type StatesView []ServiceStateView

// Table implements output.Tabular.
func (v StatesView) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"SERVICE", "ME", "PARTICIPANTS"}}
	if wide {
		t.Headers = append(t.Headers, "POSITIONS")
	}
	for _, s := range v {
		if !wide {
			t.AddRow(s.Service, s.Me, s.Participants)
			continue
		}
		parts := make([]string, 0, len(s.Levels))
		for _, l := range s.Levels {
			pos := make([]string, len(l.Positions))
			for i, p := range l.Positions {
				pos[i] = strconv.Itoa(p)
			}
			parts = append(parts, fmt.Sprintf("L%d:%s", l.Level, strings.Join(pos, ",")))
		}
		t.AddRow(s.Service, s.Me, s.Participants, strings.Join(parts, " "))
	}
	return t
}

// StatesCommand returns the states command.
func StatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "states",
		Usage: "Show the participant maps the node holds",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Only show this service",
			},
		},
		Action: states,
	}
}

func states(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := newClient(c)
	if err != nil {
		return err
	}
	all, err := client.ServiceStates(ctx)
	if err != nil {
		return fmt.Errorf("states: %w", err)
	}

	view := make(StatesView, 0, len(all))
	for _, st := range all {
		if c.IsSet("service") && uint(st.ID) != c.Uint("service") {
			continue
		}
		byLevel := make(map[int][]int)
		count := 0
		for _, r := range st.State.Records {
			if !r.Participant {
				continue
			}
			byLevel[r.Level] = append(byLevel[r.Level], r.Pos)
			count++
		}

		levels := make([]LevelParticipants, 0, len(byLevel))
		for lvl, pos := range byLevel {
			sort.Ints(pos)
			levels = append(levels, LevelParticipants{Level: lvl, Positions: pos})
		}
		sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

		view = append(view, ServiceStateView{
			Service:      uint32(st.ID),
			Me:           st.State.Me.String(),
			Participants: count,
			Levels:       levels,
		})
	}
	sort.Slice(view, func(i, j int) bool { return view[i].Service < view[j].Service })
	return printResult(c, view)
}
