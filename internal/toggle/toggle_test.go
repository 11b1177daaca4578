package toggle

import (
	"fmt"
	"slices"
	"testing"

	"github.com/and161185/tunehub/internal/model"
)

func TestToggle_SelfInverse(t *testing.T) {
	t.Parallel()

	sets := [][]string{
		nil,
		{},
		{"a"},
		{"a", "b", "c"},
		{"song42", "x"},
	}
	members := []string{"a", "c", "song42", "zzz"}

	for _, s := range sets {
		for _, m := range members {
			once, _ := Toggle(s, m)
			twice, _ := Toggle(once, m)
			if !sameMembers(twice, s) {
				t.Fatalf("toggle(toggle(%v,%q)) = %v", s, m, twice)
			}
		}
	}
}

func TestToggle_SizeAndMembership(t *testing.T) {
	t.Parallel()

	cases := []struct {
		set    []string
		member string
		wantOp model.SetOp
	}{
		{[]string{"a", "b"}, "a", model.OpRemove},
		{[]string{"a", "b"}, "c", model.OpAdd},
		{nil, "song42", model.OpAdd},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			out, op := Toggle(tc.set, tc.member)
			if op != tc.wantOp {
				t.Fatalf("op=%v want %v", op, tc.wantOp)
			}
			switch op {
			case model.OpRemove:
				if Contains(out, tc.member) || len(out) != len(tc.set)-1 {
					t.Fatalf("remove: got %v", out)
				}
			case model.OpAdd:
				if !Contains(out, tc.member) || len(out) != len(tc.set)+1 {
					t.Fatalf("add: got %v", out)
				}
			}
		})
	}
}

func TestToggle_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []string{"a", "b", "c"}
	snapshot := slices.Clone(in)
	_, _ = Toggle(in, "b")
	_ = Add(in[:1], "z")
	if !slices.Equal(in, snapshot) {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestAdd_Idempotent(t *testing.T) {
	t.Parallel()

	s := Add([]string{"a"}, "b")
	s = Add(s, "b")
	if !slices.Equal(s, []string{"a", "b"}) {
		t.Fatalf("got %v", s)
	}
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	t.Parallel()

	s := Remove([]string{"a"}, "b")
	if !slices.Equal(s, []string{"a"}) {
		t.Fatalf("got %v", s)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	if got := Apply([]int{1}, model.OpAdd, 2); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("add: %v", got)
	}
	if got := Apply([]int{1, 2}, model.OpRemove, 1); !slices.Equal(got, []int{2}) {
		t.Fatalf("remove: %v", got)
	}
	if got := Apply([]int{1}, model.SetOp(0), 5); !slices.Equal(got, []int{1}) {
		t.Fatalf("unknown op: %v", got)
	}
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
