package engine

import "testing"

func TestActiveTurn(t *testing.T) {
	players := &RoomSnapshot{Players: []Player{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Luis"}}}

	cases := []struct {
		name   string
		setup  State
		wantOK bool
		want   Turn
	}{
		{
			name:   "empty order",
			setup:  State{Room: players},
			wantOK: false,
		},
		{
			name:   "head resolves",
			setup:  State{Room: players, TurnOrder: []string{"p2", "p1"}},
			wantOK: true,
			want:   Turn{PlayerID: "p2", Name: "Luis", Resolved: true},
		},
		{
			name:   "head missing from players",
			setup:  State{Room: players, TurnOrder: []string{"gone", "p1"}},
			wantOK: true,
			want:   Turn{PlayerID: "gone"},
		},
		{
			name:   "no snapshot yet",
			setup:  State{TurnOrder: []string{"p1"}},
			wantOK: true,
			want:   Turn{PlayerID: "p1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ActiveTurn(tc.setup)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestIsMyTurn(t *testing.T) {
	s := State{SelfID: "p1", TurnOrder: []string{"p1", "p2"}}
	if !IsMyTurn(s) {
		t.Fatalf("head of turn order should be active")
	}
	s.TurnOrder = []string{"p2", "p1"}
	if IsMyTurn(s) {
		t.Fatalf("only the head of turn order is active")
	}
	if IsMyTurn(State{TurnOrder: []string{""}}) {
		t.Fatalf("unknown identity must never be active")
	}
}
