package models

import "testing"

func TestClinicRoutingKey(t *testing.T) {
	padded := "  clinic-instance-01 "
	blank := "   "

	cases := []struct {
		name   string
		clinic Clinic
		want   string
	}{
		{name: "unset", clinic: Clinic{}, want: ""},
		{name: "padded", clinic: Clinic{WhatsAppInstance: &padded}, want: "clinic-instance-01"},
		{name: "blank", clinic: Clinic{WhatsAppInstance: &blank}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.clinic.RoutingKey(); got != tc.want {
				t.Fatalf("RoutingKey() = %q, want %q", got, tc.want)
			}
		})
	}
}
