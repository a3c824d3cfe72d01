package model

import (
	"testing"
	"time"
)

func u64(v uint64) *uint64 { return &v }

func TestShareCodeIsValid(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Minute)

	tests := []struct {
		name string
		sc   *ShareCode
		want bool
	}{
		{"nil", nil, false},
		{"no booking", &ShareCode{Code: "x"}, false},
		{"active booking", &ShareCode{Booking: &Booking{EndAt: later}}, true},
		{"ended booking", &ShareCode{Booking: &Booking{EndAt: earlier}}, false},
		{"ends exactly now", &ShareCode{Booking: &Booking{EndAt: now}}, false},
		{"cancelled booking", &ShareCode{Booking: &Booking{EndAt: later, IsCancelled: true}}, false},
		{"expired code", &ShareCode{Booking: &Booking{EndAt: later}, ExpiresAt: &earlier}, false},
		{"code expiry in future", &ShareCode{Booking: &Booking{EndAt: later}, ExpiresAt: &later}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sc.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessViewCarriesOwnership(t *testing.T) {
	now := time.Now().UTC()
	sc := &ShareCode{Booking: &Booking{
		UserID:        u64(7),
		ReservationID: u64(3),
		Reservation:   &Reservation{ID: 3, CreatorID: 9},
		EndAt:         now.Add(time.Hour),
	}}
	v := sc.AccessView(now)
	if v == nil || v.Booking == nil {
		t.Fatal("AccessView() returned no booking")
	}
	if !v.Valid {
		t.Error("Valid = false, want true")
	}
	if v.Booking.UserID != 7 {
		t.Errorf("UserID = %d, want 7", v.Booking.UserID)
	}
	if v.Booking.Reservation == nil || v.Booking.Reservation.CreatorID != 9 {
		t.Errorf("Reservation = %+v, want creator 9", v.Booking.Reservation)
	}
	if got := sc.Booking.OwnerID(); got != 9 {
		t.Errorf("OwnerID() = %d, want reservation creator 9", got)
	}
}

func TestAccessViewWithoutBooking(t *testing.T) {
	var sc *ShareCode
	if sc.AccessView(time.Now()) != nil {
		t.Error("nil share code produced a view")
	}
	v := (&ShareCode{}).AccessView(time.Now())
	if v.Booking != nil || v.Valid {
		t.Errorf("view of share code without booking = %+v", v)
	}
	if (&Booking{}).OwnerID() != 0 {
		t.Error("booking without user or reservation resolved an owner")
	}
}
