package pubsub

import "testing"

func TestResourceName(t *testing.T) {
	cases := []struct {
		kind, in, want string
	}{
		{"topics", "peersen-order-events", "projects/demo/topics/peersen-order-events"},
		{"topics", " projects/other/topics/x ", "projects/other/topics/x"},
		{"subscriptions", "orders-sub", "projects/demo/subscriptions/orders-sub"},
		{"subscriptions", "projects/other/topics/x", "projects/demo/subscriptions/projects/other/topics/x"},
	}
	for _, tc := range cases {
		if got := resourceName("demo", tc.kind, tc.in); got != tc.want {
			t.Fatalf("resourceName(%q, %q) = %q, want %q", tc.kind, tc.in, got, tc.want)
		}
	}
}
