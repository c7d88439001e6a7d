package booking

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusBooked, StatusDelivered, true},
		{StatusBooked, StatusCancelled, true},
		{StatusBooked, StatusRejected, true},
		{StatusBooked, StatusReturning, false},
		{StatusDelivered, StatusReturning, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusReturning, StatusReturned, true},
		{StatusReturned, StatusCompleted, true},
		{StatusReturned, StatusBooked, false},
		{StatusCompleted, StatusBooked, false},
		{StatusCancelled, StatusBooked, false},
		{StatusRejected, StatusBooked, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
